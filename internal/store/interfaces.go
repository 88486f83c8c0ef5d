package store

import (
	"context"
	"encoding/json"
	"errors"

	"themochi.app/analytics/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// AnalysisJobStore defines the contract for analysis job data access
type AnalysisJobStore interface {
	Create(ctx context.Context, job *model.AnalysisJob) error
	GetByID(ctx context.Context, id int64) (*model.AnalysisJob, error)
	MarkRunning(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	ListRecent(ctx context.Context, organization string, limit int32) ([]model.AnalysisJob, error)
}

// AnalysisRunStore defines the contract for stored analysis results
type AnalysisRunStore interface {
	Create(ctx context.Context, run *model.AnalysisRun) error
	GetByJobID(ctx context.Context, jobID int64) (*model.AnalysisRun, error)
	SaveResult(ctx context.Context, jobID int64, result json.RawMessage) (*model.AnalysisRun, error)
}
