package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"themochi.app/analytics/common/id"
	"themochi.app/analytics/core/db"
	"themochi.app/analytics/internal/model"
)

type analysisRunStore struct {
	db *db.DB
}

func newAnalysisRunStore(database *db.DB) AnalysisRunStore {
	return &analysisRunStore{db: database}
}

func (s *analysisRunStore) Create(ctx context.Context, run *model.AnalysisRun) error {
	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO analysis_runs (id, job_id, result)
		VALUES ($1, $2, $3)`,
		run.ID, run.JobID, run.Result,
	)
	return err
}

func (s *analysisRunStore) GetByJobID(ctx context.Context, jobID int64) (*model.AnalysisRun, error) {
	var run model.AnalysisRun
	err := s.db.Pool().QueryRow(ctx, `
		SELECT id, job_id, result, created_at
		FROM analysis_runs
		WHERE job_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		jobID,
	).Scan(&run.ID, &run.JobID, &run.Result, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &run, nil
}

// SaveResult stores a completed result and flips the owning job to
// completed in one transaction.
func (s *analysisRunStore) SaveResult(ctx context.Context, jobID int64, result json.RawMessage) (*model.AnalysisRun, error) {
	run := &model.AnalysisRun{
		ID:     id.New(),
		JobID:  jobID,
		Result: result,
	}

	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO analysis_runs (id, job_id, result)
			VALUES ($1, $2, $3)`,
			run.ID, run.JobID, run.Result,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE analysis_jobs
			SET status = $2, completed_at = now()
			WHERE id = $1`,
			jobID, model.JobStatusCompleted,
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}
