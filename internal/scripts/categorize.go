package scripts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"themochi.app/analytics/common/llm"
	"themochi.app/analytics/internal/model"
)

const (
	categorizeBatchSize = 20
	batchPause          = 300 * time.Millisecond
	retryPause          = 500 * time.Millisecond
	categorizeTimeout   = 60 * time.Second
)

// Categorizer labels script clusters with a category and a short topic
// using the LLM collaborator. Failed batches fall back to single-item
// calls; a cluster whose single-item call also fails simply stays
// uncategorized. Categorization never fails a run.
type Categorizer struct {
	client llm.Client
}

func NewCategorizer(client llm.Client) *Categorizer {
	return &Categorizer{client: client}
}

type scriptClassification struct {
	ScriptID string `json:"script_id"`
	Category string `json:"category"`
	Topic    string `json:"topic"`
}

type classifyScriptsResponse struct {
	Scripts []scriptClassification `json:"scripts"`
}

var classifyScriptsSchema = llm.GenerateSchema[classifyScriptsResponse]()

// Categorize assigns Category and Topic to each cluster in place.
func (c *Categorizer) Categorize(ctx context.Context, clusters []Cluster) {
	var retryQueue []int

	batches := 0
	for start := 0; start < len(clusters); start += categorizeBatchSize {
		end := start + categorizeBatchSize
		if end > len(clusters) {
			end = len(clusters)
		}
		if batches > 0 {
			sleep(ctx, batchPause)
		}
		batches++

		batch := clusters[start:end]
		if err := c.categorizeBatch(ctx, batch); err != nil {
			slog.WarnContext(ctx, "script categorization batch failed",
				"batch_size", len(batch), "error", err)
			for i := start; i < end; i++ {
				retryQueue = append(retryQueue, i)
			}
		}
	}

	for n, idx := range retryQueue {
		if n > 0 {
			sleep(ctx, retryPause)
		}
		if err := c.categorizeBatch(ctx, clusters[idx:idx+1]); err != nil {
			slog.WarnContext(ctx, "script categorization retry failed",
				"script_index", idx, "error", err)
		}
	}
}

// categorizeBatch classifies a slice of clusters, writing results in
// place. Any schema violation or missing script ID counts as a batch
// failure.
func (c *Categorizer) categorizeBatch(ctx context.Context, batch []Cluster) error {
	ctx, cancel := context.WithTimeout(ctx, categorizeTimeout)
	defer cancel()

	var resp classifyScriptsResponse
	_, err := c.client.Chat(ctx, llm.Request{
		SystemPrompt: categorizeSystemPrompt,
		UserPrompt:   buildCategorizePrompt(batch),
		SchemaName:   "script_classifications",
		Schema:       classifyScriptsSchema,
		MaxTokens:    4000,
		Temperature:  llm.Temp(0.3),
	}, &resp)
	if err != nil {
		return err
	}

	byID := make(map[string]scriptClassification, len(resp.Scripts))
	for _, s := range resp.Scripts {
		byID[s.ScriptID] = s
	}

	for i := range batch {
		classification, ok := byID[fmt.Sprintf("script_%d", i)]
		if !ok {
			return fmt.Errorf("response missing script_%d", i)
		}
		if !validCategory(classification.Category) {
			return fmt.Errorf("invalid category %q for script_%d", classification.Category, i)
		}
		batch[i].Category = classification.Category
		batch[i].Topic = classification.Topic
	}

	return nil
}

func validCategory(category string) bool {
	for _, c := range model.ScriptCategories {
		if category == c {
			return true
		}
	}
	return false
}

const categorizeSystemPrompt = `You classify sales/setter scripts into categories and generate short topic descriptions.

Categories:
- opener: Reply to a lead's first message - initial greeting/engagement (NOT follow-up)
- follow_up: Message to revive dead chats or chase leads who have gone unresponsive
- nurture_discovery: Qualifying leads, getting to know them, building trust/authority
- cta: Call to action - inviting/pushing leads to take the final step (payment, booking, registration)

Rules:
- "opener" is ONLY for the first response to a new lead's initial message
- "follow_up" is for re-engaging leads who have not responded
- "nurture_discovery" is for ongoing conversation, qualifying, building rapport
- "cta" is for pushing toward a specific action (book call, pay, sign up)

For each script, return its script_id, its category, and a short topic
description (3-6 words) summarizing what the script is about.`

func buildCategorizePrompt(batch []Cluster) string {
	var b strings.Builder
	b.WriteString("Scripts to classify:\n")

	for i, cluster := range batch {
		fmt.Fprintf(&b, "\nScript ID: script_%d\n", i)
		b.WriteString("Previous messages:\n")

		var context []ContextMessage
		if len(cluster.Members) > 0 {
			context = cluster.Members[0].Context
		}
		if len(context) == 0 {
			b.WriteString("  [No previous messages]\n")
		}
		for _, ctx := range context {
			content := ctx.Content
			if len(content) > 100 {
				content = content[:100]
			}
			fmt.Fprintf(&b, "  [%s]: %s\n", ctx.Sender, content)
		}

		fmt.Fprintf(&b, "Script message (CREATOR): %s\n", cluster.Example)
	}

	return b.String()
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
