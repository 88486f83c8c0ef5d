// Package objections classifies LEAD messages into a fixed objection
// vocabulary using the LLM collaborator. Classification degrades
// gracefully: batches shrink through a fixed size ladder on failure,
// down to single-item calls, and an item that fails even alone is
// recorded as unclassified rather than aborting the run.
package objections

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"themochi.app/analytics/common/llm"
	"themochi.app/analytics/internal/model"
)

const (
	// CategoryNone marks a message that carries no objection.
	CategoryNone = "none"
	// CategoryUnclassified marks a message the classifier gave up on.
	CategoryUnclassified = "unclassified"

	classifyTimeout  = 60 * time.Second
	batchPause       = 300 * time.Millisecond
	attemptsPerBatch = 2
)

// batchSizeLadder is the adaptive retry ladder: a failing batch size
// falls through to the next smaller one.
var batchSizeLadder = []int{50, 25, 8, 1}

var descriptions = map[string]string{
	"Financial Objection":               "Concerns about price, budget, or cost",
	"Timing Objection":                  "Not the right time, too busy, need more time",
	"Decision Making Objection":         "Need to consult with others, can't decide alone",
	"Self Confidence Objection":         "Doubts about ability to succeed or commit",
	"Lack of Trust/Authority Objection": "Skepticism about credibility or expertise",
	"Competitor Objection":              "Considering alternatives or competitors",
	"Lack of Information Objection":     "Need more details or clarity before deciding",
}

// Classifier runs objection analysis against an LLM client.
type Classifier struct {
	client llm.Client
	ladder []int
}

func NewClassifier(client llm.Client) *Classifier {
	return &Classifier{client: client, ladder: batchSizeLadder}
}

// Analyze extracts all non-empty LEAD messages and aggregates their
// objection classifications into the 7 fixed groups.
func (c *Classifier) Analyze(ctx context.Context, conversations []model.Conversation) (*model.ObjectionsResult, error) {
	messages := extractLeadMessages(conversations)
	if len(messages) == 0 {
		return emptyResult(), nil
	}

	slog.InfoContext(ctx, "extracted lead messages for objection analysis", "count", len(messages))

	categories := c.classifyAdaptive(ctx, messages)

	return aggregate(categories, len(messages)), nil
}

func extractLeadMessages(conversations []model.Conversation) []string {
	var messages []string
	for _, conv := range conversations {
		for _, msg := range conv.Messages {
			if msg.Sender != model.SenderLead {
				continue
			}
			content := strings.TrimSpace(msg.Content)
			if content != "" {
				messages = append(messages, content)
			}
		}
	}
	return messages
}

// classifyAdaptive walks the remaining messages with the current ladder
// tier. A failed batch drops to the next smaller tier and retries the
// same leading messages; once the ladder is exhausted, the single
// failing message is marked unclassified and the walk continues.
func (c *Classifier) classifyAdaptive(ctx context.Context, messages []string) []string {
	categories := make([]string, 0, len(messages))
	remaining := messages
	ladder := c.ladder

	for len(remaining) > 0 {
		size := ladder[0]
		if size > len(remaining) {
			size = len(remaining)
		}
		batch := remaining[:size]

		result, err := c.classifyBatch(ctx, batch)
		if err == nil {
			categories = append(categories, result...)
			remaining = remaining[size:]
			if len(remaining) > 0 {
				sleep(ctx, batchPause)
			}
			continue
		}

		slog.WarnContext(ctx, "objection batch failed",
			"batch_size", size, "error", err)

		if len(ladder) > 1 {
			ladder = ladder[1:]
			slog.InfoContext(ctx, "retrying with smaller batch size", "batch_size", ladder[0])
			continue
		}

		// Even a single message failed; skip it and move on.
		categories = append(categories, CategoryUnclassified)
		remaining = remaining[1:]
	}

	return categories
}

type messageClassification struct {
	MessageIndex int    `json:"message_index"`
	Category     string `json:"category"`
}

type classifyResponse struct {
	Classifications []messageClassification `json:"classifications"`
}

var classifySchema = llm.GenerateSchema[classifyResponse]()

// classifyBatch classifies one batch, retrying transient failures a
// bounded number of times before reporting the batch as failed. A
// response with the wrong number of classifications is a shape
// violation and fails the batch.
func (c *Classifier) classifyBatch(ctx context.Context, batch []string) ([]string, error) {
	var lastErr error

	for attempt := 0; attempt < attemptsPerBatch; attempt++ {
		result, err := c.classifyOnce(ctx, batch)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !llm.IsRetryable(ctx, err) {
			break
		}
	}

	return nil, lastErr
}

func (c *Classifier) classifyOnce(ctx context.Context, batch []string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	var resp classifyResponse
	_, err := c.client.Chat(ctx, llm.Request{
		SystemPrompt: classifySystemPrompt,
		UserPrompt:   buildClassifyPrompt(batch),
		SchemaName:   "objection_classifications",
		Schema:       classifySchema,
		MaxTokens:    4000,
		Temperature:  llm.Temp(0.3),
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Classifications) != len(batch) {
		return nil, fmt.Errorf("expected %d classifications, got %d", len(batch), len(resp.Classifications))
	}

	categories := make([]string, len(batch))
	for i, cl := range resp.Classifications {
		category := cl.Category
		if category == "" {
			category = CategoryUnclassified
		}
		categories[i] = category
	}

	return categories, nil
}

const classifySystemPrompt = `You classify lead messages from sales conversations into objection categories.

Classify each message into exactly ONE category, or "none" if the message carries no objection.`

func buildClassifyPrompt(batch []string) string {
	var b strings.Builder

	b.WriteString("Categories:\n")
	for _, group := range model.ObjectionGroups {
		fmt.Fprintf(&b, "- %s\n", group)
	}
	b.WriteString("- none (not an objection)\n\nMessages:\n")

	for i, msg := range batch {
		if len(msg) > 200 {
			msg = msg[:200]
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, msg)
	}

	b.WriteString("\nReturn one classification per message, in order, using 1-based message_index.")
	return b.String()
}

// aggregate zero-fills all known groups, counts every non-"none"
// category toward the total, and sorts groups by count descending.
func aggregate(categories []string, totalAnalyzed int) *model.ObjectionsResult {
	counts := make(map[string]int)
	for _, category := range categories {
		if category != CategoryNone {
			counts[category]++
		}
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	groups := make([]model.ObjectionGroup, 0, len(model.ObjectionGroups))
	for _, name := range model.ObjectionGroups {
		count := counts[name]
		percentage := 0.0
		if total > 0 {
			percentage = roundPct(float64(count) / float64(total) * 100)
		}
		groups = append(groups, model.ObjectionGroup{
			Name:        name,
			Description: descriptions[name],
			Count:       count,
			Percentage:  percentage,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})

	return &model.ObjectionsResult{
		Groups:        groups,
		TotalAnalyzed: totalAnalyzed,
	}
}

func emptyResult() *model.ObjectionsResult {
	groups := make([]model.ObjectionGroup, 0, len(model.ObjectionGroups))
	for _, name := range model.ObjectionGroups {
		groups = append(groups, model.ObjectionGroup{
			Name:        name,
			Description: descriptions[name],
		})
	}
	return &model.ObjectionsResult{Groups: groups}
}

func roundPct(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
