package model

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// AnalysisJob tracks one queued analysis request through its lifecycle.
type AnalysisJob struct {
	ID           int64           `json:"id"`
	Organization string          `json:"organization"`
	DateFrom     string          `json:"date_from"`
	DateTo       string          `json:"date_to"`
	Params       json.RawMessage `json:"params"`
	Status       JobStatus       `json:"status"`
	Error        *string         `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// AnalysisRun is the stored output of a completed job.
type AnalysisRun struct {
	ID        int64           `json:"id"`
	JobID     int64           `json:"job_id"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}
