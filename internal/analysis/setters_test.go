package analysis_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"themochi.app/analytics/internal/analysis"
	"themochi.app/analytics/internal/model"
)

var _ = Describe("SettersBySender", func() {
	It("attributes messages to the identity that sent them", func() {
		conversations := []model.Conversation{{
			ID:          "c1",
			Stage:       model.StageQualified,
			SetterEmail: "owner@example.com",
			Messages: []model.Message{
				creatorBy("2024-01-01T10:00:00Z", "anna@example.com"),
				lead("2024-01-01T10:30:00Z"),
				creatorBy("2024-01-01T11:00:00Z", "ben@example.com"),
				lead("2024-01-01T11:30:00Z"),
			},
		}}

		setters := analysis.SettersBySender(conversations)
		Expect(setters).To(HaveLen(2))
		Expect(setters).NotTo(HaveKey("owner@example.com"))

		anna := setters["anna@example.com"]
		Expect(anna.TotalMessagesSentFromApp).To(Equal(1))
		Expect(anna.CreatorMessagesWithReply).To(Equal(1))
		Expect(anna.MedianReplyDelaySeconds).To(Equal(1800))

		// Both identities participated, so the conversation and its stage
		// count for each of them.
		ben := setters["ben@example.com"]
		Expect(anna.TotalConversations).To(Equal(1))
		Expect(ben.TotalConversations).To(Equal(1))
		Expect(anna.StageChanges[model.StageQualified]).To(Equal(1))
		Expect(ben.StageChanges[model.StageQualified]).To(Equal(1))
	})

	It("excludes creator messages without a sent-by identity", func() {
		conversations := []model.Conversation{{
			ID:          "c1",
			SetterEmail: "owner@example.com",
			Messages: []model.Message{
				creator("2024-01-01T10:00:00Z"), // no SentBy, no fallback
				lead("2024-01-01T10:30:00Z"),
			},
		}}

		setters := analysis.SettersBySender(conversations)
		Expect(setters).To(BeEmpty())
	})

	It("credits lead activity only to senders already seen in the conversation", func() {
		conversations := []model.Conversation{{
			ID: "c1",
			Messages: []model.Message{
				lead("2024-01-01T10:00:00Z"), // before any creator message
				creatorBy("2024-01-01T11:00:00Z", "anna@example.com"),
				lead("2024-01-01T13:00:00Z"),
			},
		}}

		setters := analysis.SettersBySender(conversations)
		anna := setters["anna@example.com"]

		total := 0
		for _, n := range anna.LeadActivityByTime {
			total += n
		}
		Expect(total).To(Equal(1))
		Expect(anna.LeadActivityByTime[model.TimeBin12]).To(Equal(1))
	})

	It("zero-fills all histograms and stage maps", func() {
		conversations := []model.Conversation{{
			ID: "c1",
			Messages: []model.Message{
				creatorBy("2024-01-01T10:00:00Z", "anna@example.com"),
			},
		}}

		anna := analysis.SettersBySender(conversations)["anna@example.com"]
		Expect(anna.SetterActivityByTime).To(HaveLen(len(model.TimeBins)))
		Expect(anna.LeadActivityByTime).To(HaveLen(len(model.TimeBins)))
		Expect(anna.DelayedResponsesByTime).To(HaveLen(len(model.TimeBins)))
		Expect(anna.StageChanges).To(HaveLen(len(model.Stages)))
	})
})

var _ = Describe("SettersByAssignment", func() {
	It("attributes everything to the conversation owner", func() {
		conversations := []model.Conversation{
			{
				ID:          "c1",
				Stage:       model.StageWon,
				SetterEmail: "owner@example.com",
				Messages: []model.Message{
					creatorBy("2024-01-01T10:00:00Z", "anna@example.com"),
					lead("2024-01-01T10:30:00Z"),
				},
			},
			{
				ID:          "c2",
				SetterEmail: "owner@example.com",
				Messages: []model.Message{
					creatorBy("2024-01-02T10:00:00Z", "ben@example.com"),
				},
			},
		}

		setters := analysis.SettersByAssignment(conversations)
		Expect(setters).To(HaveLen(1))

		owner := setters["owner@example.com"]
		Expect(owner.TotalConversations).To(Equal(2))
		Expect(owner.TotalMessagesSentFromApp).To(Equal(2))
		Expect(owner.CreatorMessagesWithReply).To(Equal(1))
		Expect(owner.CreatorMessageReplyRate).To(Equal(50.0))
		Expect(owner.StageChanges[model.StageWon]).To(Equal(1))
	})

	It("groups unassigned conversations under the empty key", func() {
		conversations := []model.Conversation{{
			ID:       "c1",
			Messages: []model.Message{creator("2024-01-01T10:00:00Z")},
		}}

		setters := analysis.SettersByAssignment(conversations)
		Expect(setters).To(HaveKey(""))
	})
})
