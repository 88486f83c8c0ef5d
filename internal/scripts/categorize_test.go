package scripts_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"themochi.app/analytics/common/llm"
	"themochi.app/analytics/internal/model"
	"themochi.app/analytics/internal/scripts"
)

// classifierStub answers script classification calls by labeling every
// script in the prompt, or failing a configurable number of times.
type classifierStub struct {
	failures int
	calls    int
	category string
}

func (s *classifierStub) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("rate limited")
	}

	var items []string
	for i := 0; i < strings.Count(req.UserPrompt, "Script ID: script_"); i++ {
		items = append(items, fmt.Sprintf(
			`{"script_id":"script_%d","category":%q,"topic":"program interest check"}`, i, s.category))
	}
	payload := fmt.Sprintf(`{"scripts":[%s]}`, strings.Join(items, ","))

	if err := json.Unmarshal([]byte(payload), result); err != nil {
		return nil, err
	}
	return &llm.Response{PromptTokens: 100, CompletionTokens: 50}, nil
}

func (s *classifierStub) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("not implemented")
}

func (s *classifierStub) Model() string { return "stub" }

var _ = Describe("Engine", func() {
	conversations := []model.Conversation{
		{
			ID: "c1",
			Messages: []model.Message{
				leadMsg("hi, is this open?", "2024-01-01T09:00:00Z"),
				creatorMsg("are you still interested in the program?", "2024-01-01T10:00:00Z"),
				leadMsg("yes", "2024-01-01T10:30:00Z"),
			},
		},
		{
			ID: "c2",
			Messages: []model.Message{
				creatorMsg("are you still interested in the program", "2024-01-02T10:00:00Z"),
			},
		},
	}

	It("clusters and labels repeated creator messages", func() {
		stub := &classifierStub{category: "follow_up"}
		engine := scripts.NewEngine(stub)

		result, err := engine.Analyze(context.Background(), conversations, 90)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.ByCategory["follow_up"]).To(HaveLen(1))
		pattern := result.ByCategory["follow_up"][0]
		Expect(pattern.TimesSent).To(Equal(2))
		Expect(pattern.Topic).To(Equal("program interest check"))
		Expect(stub.calls).To(Equal(1))
	})

	It("retries failed batches one cluster at a time", func() {
		stub := &classifierStub{category: "cta", failures: 1}
		engine := scripts.NewEngine(stub)

		result, err := engine.Analyze(context.Background(), conversations, 90)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ByCategory["cta"]).To(HaveLen(1))
		Expect(stub.calls).To(Equal(2))
	})

	It("leaves clusters uncategorized when every attempt fails", func() {
		stub := &classifierStub{category: "cta", failures: 10}
		engine := scripts.NewEngine(stub)

		result, err := engine.Analyze(context.Background(), conversations, 90)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ByCategory["uncategorized"]).To(HaveLen(1))
	})

	It("works without a classifier", func() {
		engine := scripts.NewEngine(nil)

		result, err := engine.Analyze(context.Background(), conversations, 90)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ByCategory["uncategorized"]).To(HaveLen(1))
	})

	It("returns an empty shape for an empty conversation set", func() {
		engine := scripts.NewEngine(nil)

		result, err := engine.Analyze(context.Background(), nil, 90)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.ByCategory).NotTo(BeEmpty())
		for _, patterns := range result.ByCategory {
			Expect(patterns).To(BeEmpty())
		}
	})
})
