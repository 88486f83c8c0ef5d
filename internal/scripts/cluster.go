// Package scripts clusters and searches setter messages using
// approximate string similarity. Clustering is an online single pass,
// deterministic and order-dependent: a message joins the first existing
// cluster that clears the threshold against the cluster's
// representative message.
package scripts

import (
	"fmt"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"themochi.app/analytics/internal/model"
)

// ContextMessage is a snippet of the conversation preceding a clustered
// message, passed to the categorizer for better labeling.
type ContextMessage struct {
	Sender  model.Sender `json:"sender"`
	Content string       `json:"content"`
}

// Member is one CREATOR message inside a cluster, with its reply
// outcome and surrounding context.
type Member struct {
	Text           string
	ConversationID string
	Index          int
	HasReply       bool
	Context        []ContextMessage
}

// Cluster is a group of near-duplicate CREATOR messages. Example is
// the representative (first) message all later candidates are scored
// against.
type Cluster struct {
	Example  string
	Members  []Member
	Count    int
	Replies  int
	Category string
	Topic    string
}

// ReplyRate formats the cluster's reply fraction as a percentage.
func (c Cluster) ReplyRate() string {
	if c.Count == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(c.Replies)/float64(c.Count)*100)
}

// ExtractCreatorMessages pulls every CREATOR message with its reply
// outcome (any following LEAD message, no window) and up to three
// preceding messages of context.
func ExtractCreatorMessages(conversations []model.Conversation) []Member {
	var members []Member

	for _, conv := range conversations {
		for i, msg := range conv.Messages {
			if msg.Sender != model.SenderCreator {
				continue
			}

			contextStart := i - 3
			if contextStart < 0 {
				contextStart = 0
			}
			var context []ContextMessage
			for _, prev := range conv.Messages[contextStart:i] {
				context = append(context, ContextMessage{
					Sender:  prev.Sender,
					Content: strings.TrimSpace(prev.Content),
				})
			}

			members = append(members, Member{
				Text:           strings.TrimSpace(msg.Content),
				ConversationID: conv.ID,
				Index:          i,
				HasReply:       hasFollowingLead(conv.Messages, i),
				Context:        context,
			})
		}
	}

	return members
}

// ClusterMessages greedily groups members in input order. Each message
// joins the first cluster whose representative scores at or above the
// threshold under token-set similarity, or starts a new cluster.
// Clusters smaller than minSize are dropped after the pass.
func ClusterMessages(members []Member, threshold float64, minSize int) []Cluster {
	var clusters []Cluster

	for _, m := range members {
		matched := false
		for i := range clusters {
			if float64(fuzzy.TokenSetRatio(m.Text, clusters[i].Example)) >= threshold {
				clusters[i].Members = append(clusters[i].Members, m)
				clusters[i].Count++
				matched = true
				break
			}
		}
		if !matched {
			clusters = append(clusters, Cluster{
				Example: m.Text,
				Members: []Member{m},
				Count:   1,
			})
		}
	}

	kept := clusters[:0]
	for _, c := range clusters {
		if c.Count >= minSize {
			for _, m := range c.Members {
				if m.HasReply {
					c.Replies++
				}
			}
			kept = append(kept, c)
		}
	}

	return kept
}

// hasFollowingLead reports whether any LEAD message follows position i
// in the sequence.
func hasFollowingLead(msgs []model.Message, i int) bool {
	for _, m := range msgs[i+1:] {
		if m.Sender == model.SenderLead {
			return true
		}
	}
	return false
}

// BuildResult converts clusters into the grouped output shape. All
// four known categories are always present, plus "uncategorized" when
// any cluster failed classification.
func BuildResult(clusters []Cluster) *model.ScriptsResult {
	grouped := make(map[string][]model.ScriptPattern, len(model.ScriptCategories))
	for _, cat := range model.ScriptCategories {
		grouped[cat] = []model.ScriptPattern{}
	}

	for i, c := range clusters {
		category := c.Category
		if category == "" {
			category = "uncategorized"
		}
		grouped[category] = append(grouped[category], model.ScriptPattern{
			ID:        fmt.Sprintf("script_%d", i+1),
			Example:   c.Example,
			TimesSent: c.Count,
			Replies:   c.Replies,
			ReplyRate: c.ReplyRate(),
			Category:  c.Category,
			Topic:     c.Topic,
		})
	}

	return &model.ScriptsResult{ByCategory: grouped}
}
