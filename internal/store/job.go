package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"themochi.app/analytics/core/db"
	"themochi.app/analytics/internal/model"
)

type analysisJobStore struct {
	db *db.DB
}

func newAnalysisJobStore(database *db.DB) AnalysisJobStore {
	return &analysisJobStore{db: database}
}

const jobColumns = `id, organization, date_from, date_to, params, status, error, created_at, started_at, completed_at`

func (s *analysisJobStore) Create(ctx context.Context, job *model.AnalysisJob) error {
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO analysis_jobs (id, organization, date_from, date_to, params, status)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		job.ID, job.Organization, job.DateFrom, job.DateTo, job.Params, job.Status,
	)
	return err
}

func (s *analysisJobStore) GetByID(ctx context.Context, id int64) (*model.AnalysisJob, error) {
	row := s.db.Pool().QueryRow(ctx,
		`SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (s *analysisJobStore) MarkRunning(ctx context.Context, id int64) error {
	_, err := s.db.Pool().Exec(ctx, `
		UPDATE analysis_jobs
		SET status = $2, started_at = now()
		WHERE id = $1`,
		id, model.JobStatusRunning,
	)
	return err
}

func (s *analysisJobStore) MarkCompleted(ctx context.Context, id int64) error {
	_, err := s.db.Pool().Exec(ctx, `
		UPDATE analysis_jobs
		SET status = $2, completed_at = now()
		WHERE id = $1`,
		id, model.JobStatusCompleted,
	)
	return err
}

func (s *analysisJobStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.db.Pool().Exec(ctx, `
		UPDATE analysis_jobs
		SET status = $2, error = $3, completed_at = now()
		WHERE id = $1`,
		id, model.JobStatusFailed, errMsg,
	)
	return err
}

func (s *analysisJobStore) ListRecent(ctx context.Context, organization string, limit int32) ([]model.AnalysisJob, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT `+jobColumns+` FROM analysis_jobs
		WHERE organization = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		organization, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []model.AnalysisJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*model.AnalysisJob, error) {
	var job model.AnalysisJob
	err := row.Scan(
		&job.ID,
		&job.Organization,
		&job.DateFrom,
		&job.DateTo,
		&job.Params,
		&job.Status,
		&job.Error,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
