package analysis_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"themochi.app/analytics/internal/analysis"
	"themochi.app/analytics/internal/model"
)

var _ = Describe("CalculateSummary", func() {
	It("returns a zero-filled summary for empty input", func() {
		summary := analysis.CalculateSummary(nil)

		Expect(summary.TotalConversations).To(Equal(0))
		Expect(summary.CreatorMessageReplyRate).To(Equal(0.0))
		Expect(summary.MedianReplyDelaySeconds).To(Equal(0))
		Expect(summary.StageChanges).NotTo(BeNil())
		Expect(summary.Media.ByType).NotTo(BeNil())
	})

	It("counts messages by sender", func() {
		conversations := []model.Conversation{{
			ID: "c1",
			Messages: []model.Message{
				lead("2024-01-01T10:00:00Z"),
				creator("2024-01-01T11:00:00Z"),
				lead("2024-01-01T12:00:00Z"),
			},
		}}

		summary := analysis.CalculateSummary(conversations)
		Expect(summary.TotalMessagesReceived).To(Equal(2))
		Expect(summary.TotalMessagesSent).To(Equal(1))
		Expect(summary.TotalMessagesSentFromApp).To(Equal(1))
	})

	It("counts a conversation with no valid messages toward totals and stages", func() {
		conversations := []model.Conversation{
			{ID: "c1", Stage: model.StageLost},
			{ID: "c2", Stage: model.StageLost},
		}

		summary := analysis.CalculateSummary(conversations)
		Expect(summary.TotalConversations).To(Equal(2))
		Expect(summary.StageChanges[model.StageLost]).To(Equal(2))
	})

	Describe("reply detection", func() {
		It("counts a reply within the 48h window and computes the median delay", func() {
			conversations := []model.Conversation{
				{ID: "c1", Messages: []model.Message{
					creator("2024-01-01T10:00:00Z"),
					lead("2024-01-01T10:01:40Z"), // 100s later
				}},
				{ID: "c2", Messages: []model.Message{
					creator("2024-01-01T10:00:00Z"),
					lead("2024-01-01T10:05:00Z"), // 300s later
				}},
			}

			summary := analysis.CalculateSummary(conversations)
			Expect(summary.CreatorMessagesWithReply).To(Equal(2))
			Expect(summary.CreatorMessageReplyRate).To(Equal(100.0))
			Expect(summary.MedianReplyDelaySeconds).To(Equal(200))
		})

		It("accepts a reply exactly at the window boundary", func() {
			conversations := []model.Conversation{{
				ID: "c1",
				Messages: []model.Message{
					creator("2024-01-01T10:00:00Z"),
					lead("2024-01-03T10:00:00Z"), // exactly 48h
				},
			}}

			summary := analysis.CalculateSummary(conversations)
			Expect(summary.CreatorMessagesWithReply).To(Equal(1))
		})

		It("stops the scan at the first subsequent LEAD even when it is late", func() {
			conversations := []model.Conversation{{
				ID: "c1",
				Messages: []model.Message{
					creator("2024-01-01T10:00:00Z"),
					lead("2024-01-03T11:00:00Z"), // 49h, outside the window
					lead("2024-01-03T12:00:00Z"), // would qualify only if the scan kept going
				},
			}}

			summary := analysis.CalculateSummary(conversations)
			Expect(summary.CreatorMessagesWithReply).To(Equal(0))
			Expect(summary.CreatorMessageReplyRate).To(Equal(0.0))
		})

		It("rounds the reply rate to two decimals", func() {
			conversations := []model.Conversation{{
				ID: "c1",
				Messages: []model.Message{
					creator("2024-01-01T10:00:00Z"), // first LEAD is >48h away
					creator("2024-01-01T11:00:00Z"),
					creator("2024-01-04T10:00:00Z"),
					lead("2024-01-04T11:00:00Z"),
				},
			}}

			summary := analysis.CalculateSummary(conversations)
			Expect(summary.CreatorMessagesWithReply).To(Equal(1))
			Expect(summary.CreatorMessageReplyRate).To(Equal(33.33))
			Expect(summary.MedianReplyDelaySeconds).To(Equal(3600))
		})
	})

	Describe("media breakdown", func() {
		It("counts attachments by type and buckets unknown types into other", func() {
			msg := lead("2024-01-01T10:00:00Z")
			msg.Media = []model.MediaItem{
				{Type: model.MediaImage, URL: "https://cdn/img1"},
				{Type: model.MediaImage, URL: "https://cdn/img2"},
				{Type: "sticker", URL: "https://cdn/st1"},
			}
			conversations := []model.Conversation{{ID: "c1", Messages: []model.Message{msg}}}

			summary := analysis.CalculateSummary(conversations)
			Expect(summary.Media.Total).To(Equal(3))
			Expect(summary.Media.ByType[model.MediaImage]).To(Equal(2))
			Expect(summary.Media.ByType[model.MediaOther]).To(Equal(1))
		})
	})
})

var _ = Describe("TimeBinForHour", func() {
	DescribeTable("maps hours onto 3-hour bins",
		func(hour int, want model.TimeBin) {
			Expect(analysis.TimeBinForHour(hour)).To(Equal(want))
		},
		Entry("midnight", 0, model.TimeBin00),
		Entry("2am", 2, model.TimeBin00),
		Entry("3am", 3, model.TimeBin03),
		Entry("8am", 8, model.TimeBin06),
		Entry("noon", 12, model.TimeBin12),
		Entry("5pm", 17, model.TimeBin15),
		Entry("9pm", 21, model.TimeBin21),
		Entry("11pm", 23, model.TimeBin21),
	)
})
