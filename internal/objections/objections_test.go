package objections_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"themochi.app/analytics/common/llm"
	"themochi.app/analytics/internal/model"
	"themochi.app/analytics/internal/objections"
)

var numberedLine = regexp.MustCompile(`(?m)^\d+\. `)

// objectionStub classifies every message in the prompt with a fixed
// category, rejecting batches above maxBatch to exercise the ladder.
type objectionStub struct {
	maxBatch   int
	category   string
	calls      int
	batchSizes []int
}

func (s *objectionStub) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	s.calls++

	size := len(numberedLine.FindAllString(req.UserPrompt, -1))
	s.batchSizes = append(s.batchSizes, size)

	if s.maxBatch > 0 && size > s.maxBatch {
		return nil, errors.New("context length exceeded")
	}

	items := make([]string, size)
	for i := range items {
		items[i] = fmt.Sprintf(`{"message_index":%d,"category":%q}`, i+1, s.category)
	}
	payload := fmt.Sprintf(`{"classifications":[%s]}`, strings.Join(items, ","))

	if err := json.Unmarshal([]byte(payload), result); err != nil {
		return nil, err
	}
	return &llm.Response{}, nil
}

func (s *objectionStub) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("not implemented")
}

func (s *objectionStub) Model() string { return "stub" }

func leadConversations(n int) []model.Conversation {
	conv := model.Conversation{ID: "c1"}
	for i := 0; i < n; i++ {
		conv.Messages = append(conv.Messages, model.Message{
			Sender:  model.SenderLead,
			Content: fmt.Sprintf("that sounds expensive, message %d", i),
		})
	}
	return []model.Conversation{conv}
}

var _ = Describe("Classifier", func() {
	It("returns the empty shape when there are no lead messages", func() {
		classifier := objections.NewClassifier(&objectionStub{category: "none"})

		result, err := classifier.Analyze(context.Background(), []model.Conversation{{
			ID:       "c1",
			Messages: []model.Message{{Sender: model.SenderCreator, Content: "hey"}},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.TotalAnalyzed).To(Equal(0))
		Expect(result.Groups).To(HaveLen(len(model.ObjectionGroups)))
	})

	It("classifies everything in one batch when the model cooperates", func() {
		stub := &objectionStub{category: "Financial Objection"}
		classifier := objections.NewClassifier(stub)

		result, err := classifier.Analyze(context.Background(), leadConversations(10))
		Expect(err).NotTo(HaveOccurred())
		Expect(stub.calls).To(Equal(1))
		Expect(result.TotalAnalyzed).To(Equal(10))

		Expect(result.Groups[0].Name).To(Equal("Financial Objection"))
		Expect(result.Groups[0].Count).To(Equal(10))
		Expect(result.Groups[0].Percentage).To(Equal(100.0))
	})

	It("walks down the batch size ladder until calls succeed", func() {
		stub := &objectionStub{category: "Timing Objection", maxBatch: 8}
		classifier := objections.NewClassifier(stub)

		result, err := classifier.Analyze(context.Background(), leadConversations(50))
		Expect(err).NotTo(HaveOccurred())

		// 50 and 25 each fail twice, then the walk settles at 8:
		// six full batches plus a final batch of 2.
		Expect(stub.batchSizes).To(Equal([]int{50, 50, 25, 25, 8, 8, 8, 8, 8, 8, 2}))
		Expect(result.TotalAnalyzed).To(Equal(50))

		timing := result.Groups[0]
		Expect(timing.Name).To(Equal("Timing Objection"))
		Expect(timing.Count).To(Equal(50))
	})

	It("marks messages unclassified once even single calls fail", func() {
		classifier := objections.NewClassifier(&alwaysFail{})

		result, err := classifier.Analyze(context.Background(), leadConversations(3))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.TotalAnalyzed).To(Equal(3))
		for _, group := range result.Groups {
			Expect(group.Count).To(Equal(0))
		}
	})

	It("excludes none answers from the objection totals", func() {
		stub := &objectionStub{category: "none"}
		classifier := objections.NewClassifier(stub)

		result, err := classifier.Analyze(context.Background(), leadConversations(5))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.TotalAnalyzed).To(Equal(5))
		for _, group := range result.Groups {
			Expect(group.Count).To(Equal(0))
			Expect(group.Percentage).To(Equal(0.0))
		}
	})

	It("sorts groups by count and keeps the rest zero-filled", func() {
		stub := &mixedStub{}
		classifier := objections.NewClassifier(stub)

		result, err := classifier.Analyze(context.Background(), leadConversations(4))
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Groups).To(HaveLen(len(model.ObjectionGroups)))
		Expect(result.Groups[0].Name).To(Equal("Financial Objection"))
		Expect(result.Groups[0].Count).To(Equal(3))
		Expect(result.Groups[0].Percentage).To(Equal(75.0))
		Expect(result.Groups[1].Name).To(Equal("Timing Objection"))
		Expect(result.Groups[1].Count).To(Equal(1))
		Expect(result.Groups[1].Percentage).To(Equal(25.0))
		Expect(result.Groups[2].Count).To(Equal(0))
	})
})

type alwaysFail struct{}

func (alwaysFail) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	return nil, errors.New("unavailable")
}

func (alwaysFail) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("unavailable")
}

func (alwaysFail) Model() string { return "stub" }

// mixedStub answers 3 financial and 1 timing objection for a batch of 4.
type mixedStub struct{}

func (mixedStub) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	payload := `{"classifications":[
		{"message_index":1,"category":"Financial Objection"},
		{"message_index":2,"category":"Financial Objection"},
		{"message_index":3,"category":"Timing Objection"},
		{"message_index":4,"category":"Financial Objection"}]}`
	if err := json.Unmarshal([]byte(payload), result); err != nil {
		return nil, err
	}
	return &llm.Response{}, nil
}

func (mixedStub) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("not implemented")
}

func (mixedStub) Model() string { return "stub" }
