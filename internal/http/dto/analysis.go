package dto

import (
	"encoding/json"

	"themochi.app/analytics/internal/ingest"
	"themochi.app/analytics/internal/model"
)

type SubmitAnalysisRequest struct {
	Organization string `json:"organization" binding:"required"`
	DateFrom     string `json:"date_from" binding:"required"`
	DateTo       string `json:"date_to" binding:"required"`

	Timezone            string  `json:"timezone,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	IncludeScripts      *bool   `json:"include_scripts,omitempty"`
	IncludeObjections   *bool   `json:"include_objections,omitempty"`
	IncludeAvatars      *bool   `json:"include_avatars,omitempty"`
}

type SubmitAnalysisResponse struct {
	JobID  int64           `json:"job_id"`
	Status model.JobStatus `json:"status"`
}

type JobResponse struct {
	Job    *model.AnalysisJob `json:"job"`
	Result json.RawMessage    `json:"result,omitempty"`
}

type SyncAnalysisRequest struct {
	Conversations []ingest.RawConversation `json:"conversations" binding:"required"`
	Timezone      string                   `json:"timezone,omitempty"`
	StartDate     string                   `json:"start_date,omitempty"`
	EndDate       string                   `json:"end_date,omitempty"`
}

type ScriptSearchRequest struct {
	Conversations []ingest.RawConversation `json:"conversations" binding:"required"`
	Query         string                   `json:"query" binding:"required"`
	Threshold     float64                  `json:"threshold,omitempty"`
	Mode          string                   `json:"mode,omitempty"`
	SenderFilter  string                   `json:"sender_filter,omitempty"`
	DateFrom      string                   `json:"date_from,omitempty"`
	DateTo        string                   `json:"date_to,omitempty"`
	Timezone      string                   `json:"timezone,omitempty"`
}
