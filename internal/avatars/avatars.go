// Package avatars clusters conversations into lead personas: filter
// out automated funnel triggers, embed each lead's opening messages,
// k-means the embeddings, and extract a profile per cluster with the
// LLM collaborator.
package avatars

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
	defaultClusters   = 5
	leadMessagesUsed  = 3
	minLeadContentLen = 10
	profileTimeout    = 60 * time.Second
	kmeansSeed        = 42
	kmeansRestarts    = 10
)

// Analyzer runs persona clustering against an LLM client.
type Analyzer struct {
	client   llm.Client
	clusters int
}

func NewAnalyzer(client llm.Client) *Analyzer {
	return &Analyzer{client: client, clusters: defaultClusters}
}

// Analyze returns persona profiles for the conversation set, or an
// empty result when there are fewer usable conversations than
// clusters.
func (a *Analyzer) Analyze(ctx context.Context, conversations []model.Conversation) (*model.AvatarsResult, error) {
	real := filterFunnelTriggers(conversations)
	if len(real) < a.clusters {
		slog.WarnContext(ctx, "too few conversations for avatar clustering",
			"usable", len(real), "clusters", a.clusters)
		return &model.AvatarsResult{Avatars: []model.AvatarProfile{}}, nil
	}

	var texts []string
	var valid []model.Conversation
	for _, conv := range real {
		if text := leadText(conv, leadMessagesUsed); text != "" {
			texts = append(texts, text)
			valid = append(valid, conv)
		}
	}
	if len(valid) < a.clusters {
		return &model.AvatarsResult{Avatars: []model.AvatarProfile{}}, nil
	}

	embeddings := make([][]float64, 0, len(texts))
	for _, text := range texts {
		vec, err := a.client.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding lead text: %w", err)
		}
		embeddings = append(embeddings, vec)
	}

	labels := kmeans(embeddings, a.clusters, kmeansRestarts, kmeansSeed)

	var avatars []model.AvatarProfile
	for clusterID := 0; clusterID < a.clusters; clusterID++ {
		var members []model.Conversation
		for i, label := range labels {
			if label == clusterID {
				members = append(members, valid[i])
			}
		}
		if len(members) == 0 {
			continue
		}

		sampleSize := 3
		if len(members) < sampleSize {
			sampleSize = len(members)
		}
		sample := members[:sampleSize]

		profile, err := a.extractProfile(ctx, sample)
		if err != nil {
			slog.WarnContext(ctx, "avatar profile extraction failed",
				"cluster", clusterID, "error", err)
			profile = avatarProfileFields{
				Job: "Unknown", AgeRange: "Unknown",
				Motivation: "Unknown", MainObjection: "Unknown",
			}
		}

		sampleIDs := make([]string, 0, len(sample))
		for _, conv := range sample {
			sampleIDs = append(sampleIDs, conv.ID)
		}

		avatars = append(avatars, model.AvatarProfile{
			ID:                fmt.Sprintf("avatar_%d", clusterID+1),
			ConversationCount: len(members),
			Percentage:        roundPct(float64(len(members)) / float64(len(valid)) * 100),
			Job:               profile.Job,
			AgeRange:          profile.AgeRange,
			Motivation:        profile.Motivation,
			MainObjection:     profile.MainObjection,
			SampleIDs:         sampleIDs,
		})
	}

	sort.SliceStable(avatars, func(i, j int) bool {
		return avatars[i].ConversationCount > avatars[j].ConversationCount
	})

	return &model.AvatarsResult{
		Avatars:            avatars,
		TotalConversations: len(valid),
		TotalClusters:      len(avatars),
	}, nil
}

// filterFunnelTriggers drops automated conversations: fewer than two
// messages, no LEAD message, or no LEAD message of substance.
func filterFunnelTriggers(conversations []model.Conversation) []model.Conversation {
	var real []model.Conversation

	for _, conv := range conversations {
		if len(conv.Messages) < 2 {
			continue
		}
		substantial := false
		hasLead := false
		for _, msg := range conv.Messages {
			if msg.Sender != model.SenderLead {
				continue
			}
			hasLead = true
			if len(strings.TrimSpace(msg.Content)) >= minLeadContentLen {
				substantial = true
				break
			}
		}
		if hasLead && substantial {
			real = append(real, conv)
		}
	}

	return real
}

// leadText joins the first maxMessages LEAD messages into one string.
func leadText(conv model.Conversation, maxMessages int) string {
	var parts []string
	for _, msg := range conv.Messages {
		if msg.Sender != model.SenderLead {
			continue
		}
		if content := strings.TrimSpace(msg.Content); content != "" {
			parts = append(parts, content)
		}
		if len(parts) == maxMessages {
			break
		}
	}
	return strings.Join(parts, " ")
}

type avatarProfileFields struct {
	Job           string `json:"job"`
	AgeRange      string `json:"age_range"`
	Motivation    string `json:"motivation"`
	MainObjection string `json:"main_objection"`
}

var profileSchema = llm.GenerateSchema[avatarProfileFields]()

func (a *Analyzer) extractProfile(ctx context.Context, sample []model.Conversation) (avatarProfileFields, error) {
	ctx, cancel := context.WithTimeout(ctx, profileTimeout)
	defer cancel()

	var b strings.Builder
	for i, conv := range sample {
		fmt.Fprintf(&b, "Conversation %d:\n", i+1)
		count := 0
		for _, msg := range conv.Messages {
			if msg.Sender != model.SenderLead {
				continue
			}
			fmt.Fprintf(&b, "  - %s\n", strings.TrimSpace(msg.Content))
			count++
			if count == leadMessagesUsed {
				break
			}
		}
		b.WriteString("\n")
	}

	var profile avatarProfileFields
	_, err := a.client.Chat(ctx, llm.Request{
		SystemPrompt: profileSystemPrompt,
		UserPrompt:   b.String(),
		SchemaName:   "avatar_profile",
		Schema:       profileSchema,
		MaxTokens:    1000,
		Temperature:  llm.Temp(0.3),
	}, &profile)
	if err != nil {
		return avatarProfileFields{}, err
	}

	return profile, nil
}

const profileSystemPrompt = `You analyze lead messages from sales conversations that belong to the same persona cluster.
Extract the common patterns into an avatar profile:
- job: most likely occupation/role (e.g. "Small business owner", "Student")
- age_range: estimated age range (e.g. "25-35")
- motivation: why they reached out (1-2 sentences)
- main_objection: primary concern or hesitation (1 sentence)`

func roundPct(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
