package service

import (
	"context"

	"themochi.app/analytics/common/llm"
	"themochi.app/analytics/internal/avatars"
	"themochi.app/analytics/internal/model"
	"themochi.app/analytics/internal/objections"
	"themochi.app/analytics/internal/scripts"
)

// llmEnricher wires the three LLM-backed engines behind the analyzer's
// enrichment contract.
type llmEnricher struct {
	scripts    *scripts.Engine
	objections *objections.Classifier
	avatars    *avatars.Analyzer
}

// newEnricher returns nil when no LLM client is configured, which the
// analyzer treats as enrichment disabled.
func newEnricher(client llm.Client) *llmEnricher {
	if client == nil {
		return nil
	}
	return &llmEnricher{
		scripts:    scripts.NewEngine(client),
		objections: objections.NewClassifier(client),
		avatars:    avatars.NewAnalyzer(client),
	}
}

func (e *llmEnricher) Scripts(ctx context.Context, conversations []model.Conversation, threshold float64) (*model.ScriptsResult, error) {
	return e.scripts.Analyze(ctx, conversations, threshold)
}

func (e *llmEnricher) Objections(ctx context.Context, conversations []model.Conversation) (*model.ObjectionsResult, error) {
	return e.objections.Analyze(ctx, conversations)
}

func (e *llmEnricher) Avatars(ctx context.Context, conversations []model.Conversation) (*model.AvatarsResult, error) {
	return e.avatars.Analyze(ctx, conversations)
}
