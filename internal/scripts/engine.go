package scripts

import (
	"context"
	"log/slog"

	"themochi.app/analytics/common/llm"
	"themochi.app/analytics/internal/model"
)

// DefaultMinClusterSize drops one-off messages from the script report.
const DefaultMinClusterSize = 2

// Engine runs the full script analysis: extract, cluster, categorize,
// group. The categorizer is optional; without one, clusters come back
// uncategorized.
type Engine struct {
	categorizer *Categorizer
	minSize     int
}

func NewEngine(client llm.Client) *Engine {
	e := &Engine{minSize: DefaultMinClusterSize}
	if client != nil {
		e.categorizer = NewCategorizer(client)
	}
	return e
}

// Analyze clusters all CREATOR messages and labels the clusters.
func (e *Engine) Analyze(ctx context.Context, conversations []model.Conversation, threshold float64) (*model.ScriptsResult, error) {
	members := ExtractCreatorMessages(conversations)
	if len(members) == 0 {
		return BuildResult(nil), nil
	}

	slog.InfoContext(ctx, "extracted creator messages", "count", len(members))

	clusters := ClusterMessages(members, threshold, e.minSize)
	slog.InfoContext(ctx, "clustered creator messages",
		"clusters", len(clusters), "min_size", e.minSize)

	if len(clusters) == 0 {
		return BuildResult(nil), nil
	}

	if e.categorizer != nil {
		e.categorizer.Categorize(ctx, clusters)
	}

	return BuildResult(clusters), nil
}
