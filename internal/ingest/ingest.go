// Package ingest normalizes raw conversation export payloads into the
// canonical shapes the analysis engines consume. All upstream format
// shims (alternate stage vocabularies, status-change entries mixed
// into message lists, missing creation timestamps) are resolved here
// and nowhere else.
package ingest

import (
	"context"
	"log/slog"

	"themochi.app/analytics/internal/model"
)

// RawEntry is one entry of an exported conversation thread. Entries
// are messages when both Sender and Content are present; anything else
// (stage-change events, system notices) is dropped during
// normalization.
type RawEntry struct {
	ID        string            `json:"id"`
	Sender    string            `json:"sender"`
	Content   string            `json:"content"`
	Timestamp string            `json:"timestamp"`
	SentBy    string            `json:"sent_by"`
	Media     []model.MediaItem `json:"media"`
}

// RawConversation mirrors the upstream detailed-export record.
type RawConversation struct {
	ID           string     `json:"id"`
	Organization string     `json:"organization"`
	Stage        string     `json:"stage"`
	SetterEmail  string     `json:"setter_email"`
	CreatedAt    string     `json:"created_at"`
	Messages     []RawEntry `json:"messages"`
}

// stageAliases maps upstream stage vocabulary onto the canonical one.
// Unmapped values pass through unchanged.
var stageAliases = map[string]string{
	"NEW":    model.StageNewLead,
	"BOOKED": model.StageBookedCall,
}

// NormalizeStage resolves upstream stage aliases.
func NormalizeStage(stage string) string {
	if mapped, ok := stageAliases[stage]; ok {
		return mapped
	}
	return stage
}

// Normalize converts raw export records into canonical conversations.
// Non-message entries are filtered out, message order is preserved
// exactly as received, and entries with unparseable timestamps are
// skipped rather than failing the batch.
func Normalize(ctx context.Context, raw []RawConversation) []model.Conversation {
	conversations := make([]model.Conversation, 0, len(raw))
	skipped := 0

	for _, rc := range raw {
		conv := model.Conversation{
			ID:           rc.ID,
			Organization: rc.Organization,
			Stage:        NormalizeStage(rc.Stage),
			SetterEmail:  rc.SetterEmail,
			CreatedAt:    rc.CreatedAt,
			Messages:     make([]model.Message, 0, len(rc.Messages)),
		}

		for _, e := range rc.Messages {
			if e.Sender == "" || e.Content == "" {
				continue // status change or other non-message event
			}
			sentAt, err := ParseTimestamp(e.Timestamp)
			if err != nil {
				skipped++
				continue
			}
			conv.Messages = append(conv.Messages, model.Message{
				ID:        e.ID,
				Sender:    model.Sender(e.Sender),
				Content:   e.Content,
				Timestamp: e.Timestamp,
				SentBy:    e.SentBy,
				Media:     e.Media,
				SentAt:    sentAt,
			})
		}

		// Creation instant falls back to the first actual message.
		if conv.CreatedAt == "" && len(conv.Messages) > 0 {
			conv.CreatedAt = conv.Messages[0].Timestamp
		}

		conversations = append(conversations, conv)
	}

	if skipped > 0 {
		slog.WarnContext(ctx, "skipped messages with unparseable timestamps", "count", skipped)
	}

	return conversations
}
