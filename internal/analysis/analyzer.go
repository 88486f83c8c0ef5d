package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"themochi.app/analytics/internal/ingest"
	"themochi.app/analytics/internal/model"
)

// ErrUnknownTimezone is returned when the configured IANA timezone
// cannot be resolved. This is the only hard configuration failure: an
// empty conversation list or zero-length range produces a well-formed
// zero-filled result instead.
var ErrUnknownTimezone = errors.New("unknown timezone")

// Enricher produces the optional LLM-backed result blocks. The
// analyzer treats it as an external collaborator: a nil Enricher, or a
// failing call, degrades to a result without that block. Enrichment
// never fails a run.
type Enricher interface {
	Scripts(ctx context.Context, conversations []model.Conversation, threshold float64) (*model.ScriptsResult, error)
	Objections(ctx context.Context, conversations []model.Conversation) (*model.ObjectionsResult, error)
	Avatars(ctx context.Context, conversations []model.Conversation) (*model.AvatarsResult, error)
}

// Analyze runs the full analysis over a conversation set: summary
// metrics, time series, both setter-attribution passes, and any
// requested enrichment blocks.
func Analyze(ctx context.Context, conversations []model.Conversation, cfg model.Config, enricher Enricher) (model.AnalysisResult, error) {
	loc, err := resolveLocation(cfg.Timezone)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	start, end := resolveDateRange(conversations, cfg)

	result := model.AnalysisResult{
		Metadata:            buildMetadata(conversations, cfg, start, end, false),
		Summary:             CalculateSummary(conversations),
		TimeSeries:          BuildTimeSeries(conversations, start, end, loc),
		SettersBySentBy:     SettersBySender(conversations),
		SettersByAssignment: SettersByAssignment(conversations),
	}

	if enricher == nil {
		return result, nil
	}

	if cfg.IncludeScripts {
		scripts, err := enricher.Scripts(ctx, conversations, cfg.SimilarityThreshold)
		if err != nil {
			slog.WarnContext(ctx, "script enrichment failed", "error", err)
		} else {
			result.Scripts = scripts
		}
	}

	if cfg.IncludeObjections {
		objections, err := enricher.Objections(ctx, conversations)
		if err != nil {
			slog.WarnContext(ctx, "objection enrichment failed", "error", err)
		} else {
			result.Objections = objections
		}
	}

	if cfg.IncludeAvatars {
		avatars, err := enricher.Avatars(ctx, conversations)
		if err != nil {
			slog.WarnContext(ctx, "avatar enrichment failed", "error", err)
		} else {
			result.Avatars = avatars
		}
	}

	return result, nil
}

// AnalyzeSimplified computes the low-latency subset used for daily
// digests: summary, by-sender setters, and the time series. It skips
// by-assignment attribution and all enrichment.
func AnalyzeSimplified(ctx context.Context, conversations []model.Conversation, timezone string, startDate, endDate string) (model.AnalysisResult, error) {
	loc, err := resolveLocation(timezone)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	cfg := model.DefaultConfig()
	cfg.Timezone = timezone
	cfg.StartDate = startDate
	cfg.EndDate = endDate
	cfg.IncludeScripts = false
	cfg.IncludeObjections = false

	start, end := resolveDateRange(conversations, cfg)

	return model.AnalysisResult{
		Metadata:            buildMetadata(conversations, cfg, start, end, true),
		Summary:             CalculateSummary(conversations),
		TimeSeries:          BuildTimeSeries(conversations, start, end, loc),
		SettersBySentBy:     SettersBySender(conversations),
		SettersByAssignment: map[string]model.SetterMetrics{},
	}, nil
}

func resolveLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTimezone, timezone)
	}
	return loc, nil
}

func resolveDateRange(conversations []model.Conversation, cfg model.Config) (time.Time, time.Time) {
	if cfg.StartDate != "" && cfg.EndDate != "" {
		start, errStart := time.ParseInLocation("2006-01-02", cfg.StartDate, time.UTC)
		end, errEnd := time.ParseInLocation("2006-01-02", cfg.EndDate, time.UTC)
		if errStart == nil && errEnd == nil {
			return start, end
		}
	}
	return DetectDateRange(conversations)
}

// DetectDateRange finds the min and max conversation-creation dates.
// Unparsable timestamps are silently excluded; an empty set yields
// today for both bounds.
func DetectDateRange(conversations []model.Conversation) (time.Time, time.Time) {
	var first, last time.Time
	for _, conv := range conversations {
		createdAt, err := ingest.ParseTimestamp(conv.CreatedAt)
		if err != nil {
			continue
		}
		day := time.Date(createdAt.Year(), createdAt.Month(), createdAt.Day(), 0, 0, 0, 0, time.UTC)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
	}
	if first.IsZero() {
		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return today, today
	}
	return first, last
}

func buildMetadata(conversations []model.Conversation, cfg model.Config, start, end time.Time, simplified bool) model.Metadata {
	meta := model.Metadata{
		Timezone: cfg.Timezone,
		Period: model.Period{
			Start: start.Format("2006-01-02"),
			End:   end.Format("2006-01-02"),
		},
		Simplified: simplified,
		Config:     cfg,
	}
	if len(conversations) > 0 {
		meta.OrganizationID = conversations[0].Organization
	}
	return meta
}
