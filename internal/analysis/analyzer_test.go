package analysis_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"themochi.app/analytics/internal/analysis"
	"themochi.app/analytics/internal/model"
)

type stubEnricher struct {
	scripts       *model.ScriptsResult
	scriptsErr    error
	objections    *model.ObjectionsResult
	objectionsErr error
	avatars       *model.AvatarsResult
	avatarsErr    error
}

func (s *stubEnricher) Scripts(ctx context.Context, conversations []model.Conversation, threshold float64) (*model.ScriptsResult, error) {
	return s.scripts, s.scriptsErr
}

func (s *stubEnricher) Objections(ctx context.Context, conversations []model.Conversation) (*model.ObjectionsResult, error) {
	return s.objections, s.objectionsErr
}

func (s *stubEnricher) Avatars(ctx context.Context, conversations []model.Conversation) (*model.AvatarsResult, error) {
	return s.avatars, s.avatarsErr
}

var _ = Describe("Analyze", func() {
	var conversations []model.Conversation

	BeforeEach(func() {
		conversations = []model.Conversation{{
			ID:           "c1",
			Organization: "acme",
			Stage:        model.StageQualified,
			SetterEmail:  "anna@example.com",
			CreatedAt:    "2024-01-01T09:00:00Z",
			Messages: []model.Message{
				creatorBy("2024-01-01T10:00:00Z", "anna@example.com"),
				lead("2024-01-01T11:00:00Z"),
			},
		}}
	})

	It("rejects unknown timezones", func() {
		cfg := model.DefaultConfig()
		cfg.Timezone = "Mars/Olympus_Mons"

		_, err := analysis.Analyze(context.Background(), conversations, cfg, nil)
		Expect(errors.Is(err, analysis.ErrUnknownTimezone)).To(BeTrue())
	})

	It("produces every core block without an enricher", func() {
		cfg := model.DefaultConfig()
		cfg.StartDate = "2024-01-01"
		cfg.EndDate = "2024-01-02"

		result, err := analysis.Analyze(context.Background(), conversations, cfg, nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Metadata.OrganizationID).To(Equal("acme"))
		Expect(result.Metadata.Period.Start).To(Equal("2024-01-01"))
		Expect(result.Metadata.Period.End).To(Equal("2024-01-02"))
		Expect(result.Metadata.Simplified).To(BeFalse())

		Expect(result.Summary.TotalConversations).To(Equal(1))
		Expect(result.TimeSeries.StageChangesByDay).To(HaveLen(2))
		Expect(result.SettersBySentBy).To(HaveKey("anna@example.com"))
		Expect(result.SettersByAssignment).To(HaveKey("anna@example.com"))

		Expect(result.Scripts).To(BeNil())
		Expect(result.Objections).To(BeNil())
		Expect(result.Avatars).To(BeNil())
	})

	It("attaches enrichment blocks when the enricher succeeds", func() {
		enricher := &stubEnricher{
			scripts:    &model.ScriptsResult{},
			objections: &model.ObjectionsResult{},
			avatars:    &model.AvatarsResult{},
		}
		cfg := model.DefaultConfig()
		cfg.IncludeAvatars = true

		result, err := analysis.Analyze(context.Background(), conversations, cfg, enricher)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Scripts).To(Equal(enricher.scripts))
		Expect(result.Objections).To(Equal(enricher.objections))
		Expect(result.Avatars).To(Equal(enricher.avatars))
	})

	It("degrades to a result without the block when enrichment fails", func() {
		enricher := &stubEnricher{
			scriptsErr:    errors.New("model unavailable"),
			objectionsErr: errors.New("model unavailable"),
		}

		result, err := analysis.Analyze(context.Background(), conversations, model.DefaultConfig(), enricher)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Scripts).To(BeNil())
		Expect(result.Objections).To(BeNil())
	})

	It("skips enrichment blocks the config excludes", func() {
		enricher := &stubEnricher{avatars: &model.AvatarsResult{}}
		cfg := model.DefaultConfig()
		cfg.IncludeScripts = false
		cfg.IncludeObjections = false

		result, err := analysis.Analyze(context.Background(), conversations, cfg, enricher)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Scripts).To(BeNil())
		Expect(result.Avatars).To(BeNil())
	})
})

var _ = Describe("AnalyzeSimplified", func() {
	It("computes the digest subset end to end", func() {
		conversations := []model.Conversation{
			{ID: "c1", CreatedAt: "2024-01-01T09:00:00Z", Messages: []model.Message{
				creatorBy("2024-01-01T10:00:00Z", "anna@example.com"),
				lead("2024-01-01T11:00:00Z"),
			}},
			{ID: "c2", CreatedAt: "2024-01-01T09:00:00Z", Messages: []model.Message{
				creatorBy("2024-01-01T12:00:00Z", "anna@example.com"),
				lead("2024-01-01T13:00:00Z"),
			}},
			{ID: "c3", CreatedAt: "2024-01-01T09:00:00Z", Messages: []model.Message{
				creatorBy("2024-01-01T14:00:00Z", "anna@example.com"),
				lead("2024-01-01T15:00:00Z"),
			}},
		}

		result, err := analysis.AnalyzeSimplified(context.Background(), conversations, "", "2024-01-01", "2024-01-01")
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Metadata.Simplified).To(BeTrue())
		Expect(result.Summary.MedianReplyDelaySeconds).To(Equal(3600))
		Expect(result.Summary.CreatorMessageReplyRate).To(Equal(100.0))
		Expect(result.SettersBySentBy).To(HaveKey("anna@example.com"))
		Expect(result.SettersByAssignment).To(BeEmpty())
		Expect(result.SettersByAssignment).NotTo(BeNil())
	})

	It("rejects unknown timezones", func() {
		_, err := analysis.AnalyzeSimplified(context.Background(), nil, "Not/AZone", "", "")
		Expect(errors.Is(err, analysis.ErrUnknownTimezone)).To(BeTrue())
	})
})

var _ = Describe("DetectDateRange", func() {
	It("finds the min and max creation days, skipping unparseable ones", func() {
		conversations := []model.Conversation{
			{ID: "c1", CreatedAt: "2024-03-05T23:00:00Z"},
			{ID: "c2", CreatedAt: "not-a-date"},
			{ID: "c3", CreatedAt: "2024-03-01T01:00:00Z"},
		}

		first, last := analysis.DetectDateRange(conversations)
		Expect(first).To(Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
		Expect(last).To(Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	})

	It("falls back to today for an empty set", func() {
		first, last := analysis.DetectDateRange(nil)
		Expect(first).To(Equal(last))
		Expect(first.Hour()).To(Equal(0))
	})
})
