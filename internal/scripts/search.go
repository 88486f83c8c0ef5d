package scripts

import (
	"math"
	"strings"
	"time"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"themochi.app/analytics/internal/model"
)

// MatchMode selects the fuzzy scoring function for similarity search.
type MatchMode string

const (
	MatchRatio    MatchMode = "ratio"     // whole-string character ratio
	MatchTokenSet MatchMode = "token_set" // order-insensitive token sets
	MatchPartial  MatchMode = "partial"   // best partial substring
)

// SearchOptions configures a similarity search.
type SearchOptions struct {
	Threshold    float64      // minimum similarity score, 0-100
	Mode         MatchMode    // defaults to token_set
	SenderFilter model.Sender // defaults to CREATOR
	DateFrom     string       // inclusive, YYYY-MM-DD in Location, optional
	DateTo       string       // inclusive, optional
	Location     *time.Location
}

// SetterBreakdown is the per-sender slice of a search result.
type SetterBreakdown struct {
	Matches   int     `json:"matches"`
	Replies   int     `json:"replies"`
	ReplyRate float64 `json:"reply_rate"`
}

// Match is one message that cleared the similarity threshold.
type Match struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"message_content"`
	Similarity     int    `json:"similarity"`
	HasReply       bool   `json:"has_reply"`
	Setter         string `json:"setter"`
}

// SearchResult aggregates all matches for one query.
type SearchResult struct {
	Query        string                     `json:"query"`
	TotalMatches int                        `json:"total_matches"`
	TotalReplies int                        `json:"total_replies"`
	ReplyRate    float64                    `json:"reply_rate"`
	Setters      map[string]SetterBreakdown `json:"setters_breakdown"`
	Matches      []Match                    `json:"all_matches"`
}

// Search scores every message of the filtered sender against the query
// and returns those at or above the threshold, with reply attribution
// per sending identity. The setter attribution here falls back from
// the message's sent-by identity to the conversation owner, then to
// "Unknown".
func Search(conversations []model.Conversation, query string, opts SearchOptions) SearchResult {
	matchFunc := matchFuncFor(opts.Mode)
	sender := opts.SenderFilter
	if sender == "" {
		sender = model.SenderCreator
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	dateFrom, hasFrom := parseDay(opts.DateFrom)
	dateTo, hasTo := parseDay(opts.DateTo)

	result := SearchResult{
		Query:   query,
		Setters: make(map[string]SetterBreakdown),
	}

	queryNorm := strings.ToLower(strings.TrimSpace(query))

	for _, conv := range conversations {
		for i, msg := range conv.Messages {
			if msg.Sender != sender {
				continue
			}

			if hasFrom || hasTo {
				day := msg.SentAt.In(loc).Format("2006-01-02")
				if hasFrom && day < dateFrom {
					continue
				}
				if hasTo && day > dateTo {
					continue
				}
			}

			similarity := matchFunc(queryNorm, strings.ToLower(strings.TrimSpace(msg.Content)))
			if float64(similarity) < opts.Threshold {
				continue
			}

			setter := msg.SentBy
			if setter == "" {
				setter = conv.SetterEmail
			}
			if setter == "" {
				setter = "Unknown"
			}

			hasReply := hasFollowingLead(conv.Messages, i)

			result.TotalMatches++
			breakdown := result.Setters[setter]
			breakdown.Matches++
			if hasReply {
				result.TotalReplies++
				breakdown.Replies++
			}
			result.Setters[setter] = breakdown

			result.Matches = append(result.Matches, Match{
				ConversationID: conv.ID,
				Content:        snippet(msg.Content, 100),
				Similarity:     similarity,
				HasReply:       hasReply,
				Setter:         setter,
			})
		}
	}

	if result.TotalMatches > 0 {
		result.ReplyRate = round1(float64(result.TotalReplies) / float64(result.TotalMatches) * 100)
	}
	for setter, b := range result.Setters {
		if b.Matches > 0 {
			b.ReplyRate = round1(float64(b.Replies) / float64(b.Matches) * 100)
			result.Setters[setter] = b
		}
	}

	return result
}

func matchFuncFor(mode MatchMode) func(s1, s2 string) int {
	switch mode {
	case MatchRatio:
		return func(s1, s2 string) int { return fuzzy.Ratio(s1, s2) }
	case MatchPartial:
		return func(s1, s2 string) int { return fuzzy.PartialRatio(s1, s2) }
	default:
		return func(s1, s2 string) int { return fuzzy.TokenSetRatio(s1, s2) }
	}
}

func parseDay(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if _, err := time.ParseInLocation("2006-01-02", s, time.UTC); err != nil {
		return "", false
	}
	return s, true
}

func snippet(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
