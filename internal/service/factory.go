package service

import (
	"log/slog"

	"themochi.app/analytics/common/llm"
	"themochi.app/analytics/core/config"
	"themochi.app/analytics/internal/queue"
	"themochi.app/analytics/internal/store"
)

type Services struct {
	stores      *store.Stores
	producer    queue.Producer
	llmClient   llm.Client
	source      ConversationSource
	analysisCfg config.AnalysisConfig
	logger      *slog.Logger
}

func NewServices(stores *store.Stores, producer queue.Producer, llmClient llm.Client, source ConversationSource, analysisCfg config.AnalysisConfig) *Services {
	return &Services{
		stores:      stores,
		producer:    producer,
		llmClient:   llmClient,
		source:      source,
		analysisCfg: analysisCfg,
		logger:      slog.Default(),
	}
}

func (s *Services) Analysis() AnalysisService {
	return NewAnalysisService(
		s.stores.AnalysisJobs(),
		s.stores.AnalysisRuns(),
		s.producer,
		s.source,
		s.llmClient,
		s.analysisCfg,
	)
}
