// Package analysis implements the deterministic conversation-analysis
// engines: core engagement metrics, per-setter attribution under two
// grouping policies, and time-bucketed activity series. Every engine
// is a pure function over an in-memory conversation list; iteration
// preserves input order, which the reply-detection rules depend on.
package analysis

import (
	"math"
	"sort"
	"time"

	"themochi.app/analytics/internal/model"
)

// ReplyWindow is the cutoff for counting a LEAD response as a reply to
// a CREATOR message.
const ReplyWindow = 48 * time.Hour

// firstReplyDelay scans forward from position i for the first
// subsequent LEAD message. The scan stops at the first LEAD hit: a
// reply beyond the window does not make the engine look further.
func firstReplyDelay(msgs []model.Message, i int) (time.Duration, bool) {
	for _, m := range msgs[i+1:] {
		if m.Sender != model.SenderLead {
			continue
		}
		delay := m.SentAt.Sub(msgs[i].SentAt)
		if delay <= ReplyWindow {
			return delay, true
		}
		return 0, false
	}
	return 0, false
}

// hasFollowingLead reports whether any LEAD message follows position i,
// regardless of delay. Used by the script engines, which count replies
// without the 48h window.
func hasFollowingLead(msgs []model.Message, i int) bool {
	for _, m := range msgs[i+1:] {
		if m.Sender == model.SenderLead {
			return true
		}
	}
	return false
}

// medianSeconds returns the median of the delay samples in whole
// seconds, 0 when there are none.
func medianSeconds(delays []float64) int {
	if len(delays) == 0 {
		return 0
	}
	sorted := make([]float64, len(delays))
	copy(sorted, delays)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return int(sorted[mid])
	}
	return int((sorted[mid-1] + sorted[mid]) / 2)
}

// replyRate computes replied/total as a percentage rounded to two
// decimals, 0 when total is zero.
func replyRate(replied, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(replied)/float64(total)*10000) / 100
}

// CalculateSummary computes the core engagement metrics over a
// conversation set. A conversation with no valid messages still counts
// toward total_conversations and stage_changes.
func CalculateSummary(conversations []model.Conversation) model.Summary {
	summary := model.Summary{
		StageChanges: make(map[string]int),
		Media:        model.MediaBreakdown{ByType: make(map[string]int)},
	}
	summary.TotalConversations = len(conversations)

	var totalCreator int
	var delays []float64

	for _, conv := range conversations {
		if conv.Stage != "" {
			summary.StageChanges[conv.Stage]++
		}

		for i, msg := range conv.Messages {
			switch msg.Sender {
			case model.SenderLead:
				summary.TotalMessagesReceived++
			case model.SenderCreator:
				summary.TotalMessagesSent++
				summary.TotalMessagesSentFromApp++
				totalCreator++

				if delay, ok := firstReplyDelay(conv.Messages, i); ok {
					summary.CreatorMessagesWithReply++
					delays = append(delays, delay.Seconds())
				}
			}

			for _, item := range msg.Media {
				summary.Media.Total++
				mediaType := item.Type
				if !knownMediaType(mediaType) {
					mediaType = model.MediaOther
				}
				summary.Media.ByType[mediaType]++
			}
		}
	}

	summary.CreatorMessageReplyRate = replyRate(summary.CreatorMessagesWithReply, totalCreator)
	summary.MedianReplyDelaySeconds = medianSeconds(delays)

	return summary
}

func knownMediaType(t string) bool {
	for _, known := range model.MediaTypes {
		if t == known {
			return true
		}
	}
	return false
}
