package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"themochi.app/analytics/internal/analysis"
	"themochi.app/analytics/internal/http/dto"
	"themochi.app/analytics/internal/model"
	"themochi.app/analytics/internal/scripts"
	"themochi.app/analytics/internal/service"
)

type AnalysisHandler struct {
	service service.AnalysisService
}

func NewAnalysisHandler(service service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// Submit enqueues an analysis job and returns its ID.
func (h *AnalysisHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SubmitAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid analysis request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := model.DefaultConfig()
	if req.Timezone != "" {
		cfg.Timezone = req.Timezone
	}
	if req.SimilarityThreshold > 0 {
		cfg.SimilarityThreshold = req.SimilarityThreshold
	}
	if req.IncludeScripts != nil {
		cfg.IncludeScripts = *req.IncludeScripts
	}
	if req.IncludeObjections != nil {
		cfg.IncludeObjections = *req.IncludeObjections
	}
	if req.IncludeAvatars != nil {
		cfg.IncludeAvatars = *req.IncludeAvatars
	}

	params := service.SubmitParams{
		Organization: req.Organization,
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
		Config:       cfg,
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		traceID := spanCtx.TraceID().String()
		params.TraceID = &traceID
	}

	job, err := h.service.Submit(ctx, params)
	if err != nil {
		slog.ErrorContext(ctx, "failed to submit analysis job", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, dto.SubmitAnalysisResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// Job returns job status plus the stored result once completed.
func (h *AnalysisHandler) Job(c *gin.Context) {
	ctx := c.Request.Context()

	var params struct {
		ID int64 `uri:"id" binding:"required"`
	}
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	view, err := h.service.Job(ctx, params.ID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to fetch job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch job"})
		return
	}

	c.JSON(http.StatusOK, dto.JobResponse{
		Job:    view.Job,
		Result: view.Result,
	})
}

// AnalyzeSync runs the simplified analysis inline over a posted payload.
func (h *AnalysisHandler) AnalyzeSync(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SyncAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid sync analysis request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.AnalyzeSync(ctx, req.Conversations, req.Timezone, req.StartDate, req.EndDate)
	if err != nil {
		if errors.Is(err, analysis.ErrUnknownTimezone) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "sync analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchScripts fuzzy-searches creator messages in a posted payload.
func (h *AnalysisHandler) SearchScripts(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ScriptSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid script search request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threshold := req.Threshold
	if threshold == 0 {
		threshold = 85.0
	}

	opts := scripts.SearchOptions{
		Threshold:    threshold,
		Mode:         scripts.MatchMode(req.Mode),
		SenderFilter: model.Sender(req.SenderFilter),
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
	}
	if req.Timezone != "" {
		loc, err := time.LoadLocation(req.Timezone)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown timezone: " + req.Timezone})
			return
		}
		opts.Location = loc
	}

	result, err := h.service.SearchScripts(ctx, req.Conversations, req.Query, opts)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
