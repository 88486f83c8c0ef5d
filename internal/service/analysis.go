package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"themochi.app/analytics/common/id"
	"themochi.app/analytics/common/llm"
	"themochi.app/analytics/common/logger"
	"themochi.app/analytics/core/config"
	"themochi.app/analytics/internal/analysis"
	"themochi.app/analytics/internal/ingest"
	"themochi.app/analytics/internal/model"
	"themochi.app/analytics/internal/queue"
	"themochi.app/analytics/internal/scripts"
	"themochi.app/analytics/internal/store"
)

// ConversationSource fetches raw conversation exports for an
// organization over an inclusive date range.
type ConversationSource interface {
	FetchConversations(ctx context.Context, orgID, dateFrom, dateTo string) ([]ingest.RawConversation, error)
}

type SubmitParams struct {
	Organization string
	DateFrom     string
	DateTo       string
	Config       model.Config
	TraceID      *string
}

type JobView struct {
	Job    *model.AnalysisJob
	Result json.RawMessage
}

var ErrJobNotFound = errors.New("analysis job not found")

type AnalysisService interface {
	Submit(ctx context.Context, params SubmitParams) (*model.AnalysisJob, error)
	Job(ctx context.Context, jobID int64) (*JobView, error)
	Process(ctx context.Context, jobID int64) error
	AnalyzeSync(ctx context.Context, raw []ingest.RawConversation, timezone, startDate, endDate string) (model.AnalysisResult, error)
	SearchScripts(ctx context.Context, raw []ingest.RawConversation, query string, opts scripts.SearchOptions) (scripts.SearchResult, error)
}

type analysisService struct {
	jobs        store.AnalysisJobStore
	runs        store.AnalysisRunStore
	producer    queue.Producer
	source      ConversationSource
	llmClient   llm.Client
	analysisCfg config.AnalysisConfig
	logger      *slog.Logger
}

func NewAnalysisService(jobs store.AnalysisJobStore, runs store.AnalysisRunStore, producer queue.Producer, source ConversationSource, llmClient llm.Client, analysisCfg config.AnalysisConfig) AnalysisService {
	return &analysisService{
		jobs:        jobs,
		runs:        runs,
		producer:    producer,
		source:      source,
		llmClient:   llmClient,
		analysisCfg: analysisCfg,
		logger:      slog.Default(),
	}
}

// Submit records a queued job and hands it to the stream.
func (s *analysisService) Submit(ctx context.Context, params SubmitParams) (*model.AnalysisJob, error) {
	if params.Organization == "" {
		return nil, fmt.Errorf("organization is required")
	}
	if params.DateFrom == "" || params.DateTo == "" {
		return nil, fmt.Errorf("date_from and date_to are required")
	}
	for _, d := range []string{params.DateFrom, params.DateTo} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}

	cfg := params.Config
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = s.analysisCfg.SimilarityThreshold
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = s.analysisCfg.BatchSize
	}
	paramsJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling job params: %w", err)
	}

	job := &model.AnalysisJob{
		ID:           id.New(),
		Organization: params.Organization,
		DateFrom:     params.DateFrom,
		DateTo:       params.DateTo,
		Params:       paramsJSON,
		Status:       model.JobStatusQueued,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating analysis job: %w", err)
	}

	if err := s.producer.Enqueue(ctx, queue.JobMessage{
		JobID:        job.ID,
		Organization: job.Organization,
		TraceID:      params.TraceID,
	}); err != nil {
		errMsg := fmt.Sprintf("enqueue failed: %v", err)
		if markErr := s.jobs.MarkFailed(ctx, job.ID, errMsg); markErr != nil {
			s.logger.ErrorContext(ctx, "marking unenqueued job failed", "job_id", job.ID, "error", markErr)
		}
		return nil, fmt.Errorf("enqueuing analysis job: %w", err)
	}

	return job, nil
}

// Job returns the job with its stored result when one exists.
func (s *analysisService) Job(ctx context.Context, jobID int64) (*JobView, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("fetching job: %w", err)
	}

	view := &JobView{Job: job}

	if job.Status == model.JobStatusCompleted {
		run, err := s.runs.GetByJobID(ctx, jobID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("fetching job result: %w", err)
		}
		if run != nil {
			view.Result = run.Result
		}
	}

	return view, nil
}

// Process runs one claimed job end to end: fetch export, normalize,
// analyze, store the result.
func (s *analysisService) Process(ctx context.Context, jobID int64) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrJobNotFound
		}
		return fmt.Errorf("fetching job: %w", err)
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		JobID:        logger.Ptr(job.ID),
		Organization: logger.Ptr(job.Organization),
	})

	if err := s.jobs.MarkRunning(ctx, job.ID); err != nil {
		return fmt.Errorf("marking job running: %w", err)
	}

	result, err := s.run(ctx, job)
	if err != nil {
		if markErr := s.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.ErrorContext(ctx, "marking job failed", "error", markErr)
		}
		return err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		wrapped := fmt.Errorf("marshaling analysis result: %w", err)
		if markErr := s.jobs.MarkFailed(ctx, job.ID, wrapped.Error()); markErr != nil {
			s.logger.ErrorContext(ctx, "marking job failed", "error", markErr)
		}
		return wrapped
	}

	if _, err := s.runs.SaveResult(ctx, job.ID, resultJSON); err != nil {
		return fmt.Errorf("storing analysis result: %w", err)
	}

	s.logger.InfoContext(ctx, "analysis job completed",
		"conversations", result.Summary.TotalConversations)
	return nil
}

func (s *analysisService) run(ctx context.Context, job *model.AnalysisJob) (model.AnalysisResult, error) {
	if s.source == nil {
		return model.AnalysisResult{}, fmt.Errorf("no conversation source configured")
	}

	raw, err := s.source.FetchConversations(ctx, job.Organization, job.DateFrom, job.DateTo)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("fetching conversations: %w", err)
	}

	conversations := ingest.Normalize(ctx, raw)

	cfg := model.DefaultConfig()
	if len(job.Params) > 0 {
		if err := json.Unmarshal(job.Params, &cfg); err != nil {
			return model.AnalysisResult{}, fmt.Errorf("unmarshaling job params: %w", err)
		}
	}
	cfg.StartDate = job.DateFrom
	cfg.EndDate = job.DateTo

	var enricher analysis.Enricher
	if e := newEnricher(s.llmClient); e != nil {
		enricher = e
	}

	return analysis.Analyze(ctx, conversations, cfg, enricher)
}

// AnalyzeSync runs the simplified analysis inline over a posted payload.
func (s *analysisService) AnalyzeSync(ctx context.Context, raw []ingest.RawConversation, timezone, startDate, endDate string) (model.AnalysisResult, error) {
	conversations := ingest.Normalize(ctx, raw)
	return analysis.AnalyzeSimplified(ctx, conversations, timezone, startDate, endDate)
}

// SearchScripts fuzzy-searches creator messages in a posted payload.
func (s *analysisService) SearchScripts(ctx context.Context, raw []ingest.RawConversation, query string, opts scripts.SearchOptions) (scripts.SearchResult, error) {
	if query == "" {
		return scripts.SearchResult{}, fmt.Errorf("query is required")
	}
	conversations := ingest.Normalize(ctx, raw)
	return scripts.Search(conversations, query, opts), nil
}
