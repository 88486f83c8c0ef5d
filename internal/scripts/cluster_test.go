package scripts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"themochi.app/analytics/internal/model"
	"themochi.app/analytics/internal/scripts"
)

var _ = Describe("ExtractCreatorMessages", func() {
	It("collects creator messages with reply outcome and preceding context", func() {
		conversations := []model.Conversation{{
			ID: "c1",
			Messages: []model.Message{
				leadMsg("hey, saw your post", "2024-01-01T10:00:00Z"),
				leadMsg("is this still open?", "2024-01-01T10:01:00Z"),
				creatorMsg("yes! want me to send details?", "2024-01-01T10:05:00Z"),
				leadMsg("please do", "2024-01-01T10:10:00Z"),
				creatorMsg("here you go, link below", "2024-01-01T10:15:00Z"),
			},
		}}

		members := scripts.ExtractCreatorMessages(conversations)
		Expect(members).To(HaveLen(2))

		first := members[0]
		Expect(first.Text).To(Equal("yes! want me to send details?"))
		Expect(first.ConversationID).To(Equal("c1"))
		Expect(first.Index).To(Equal(2))
		Expect(first.HasReply).To(BeTrue())
		Expect(first.Context).To(HaveLen(2))
		Expect(first.Context[0].Content).To(Equal("hey, saw your post"))

		// Last creator message has no following lead, regardless of timing.
		Expect(members[1].HasReply).To(BeFalse())
		Expect(members[1].Context).To(HaveLen(3))
	})

	It("returns nothing for lead-only conversations", func() {
		conversations := []model.Conversation{{
			ID:       "c1",
			Messages: []model.Message{leadMsg("hello?", "2024-01-01T10:00:00Z")},
		}}
		Expect(scripts.ExtractCreatorMessages(conversations)).To(BeEmpty())
	})
})

var _ = Describe("ClusterMessages", func() {
	member := func(text string, hasReply bool) scripts.Member {
		return scripts.Member{Text: text, HasReply: hasReply}
	}

	It("groups near-duplicates under the first matching representative", func() {
		members := []scripts.Member{
			member("hey! thanks for reaching out, how can I help?", true),
			member("hey!! thanks for reaching out, how can I help", false),
			member("completely different message about pricing plans", true),
		}

		clusters := scripts.ClusterMessages(members, 90, 1)
		Expect(clusters).To(HaveLen(2))
		Expect(clusters[0].Count).To(Equal(2))
		Expect(clusters[0].Example).To(Equal(members[0].Text))
		Expect(clusters[1].Count).To(Equal(1))
	})

	It("drops clusters below the minimum size", func() {
		members := []scripts.Member{
			member("hey! thanks for reaching out, how can I help?", true),
			member("hey!! thanks for reaching out, how can I help", false),
			member("completely different message about pricing plans", true),
		}

		clusters := scripts.ClusterMessages(members, 90, 2)
		Expect(clusters).To(HaveLen(1))
		Expect(clusters[0].Count).To(Equal(2))
	})

	It("counts replies per kept cluster", func() {
		members := []scripts.Member{
			member("are you still interested in the program?", true),
			member("are you still interested in the program??", true),
			member("are you still interested in the program!", false),
		}

		clusters := scripts.ClusterMessages(members, 90, 2)
		Expect(clusters).To(HaveLen(1))
		Expect(clusters[0].Replies).To(Equal(2))
		Expect(clusters[0].ReplyRate()).To(Equal("66.7%"))
	})
})

var _ = Describe("BuildResult", func() {
	It("always emits all known categories", func() {
		result := scripts.BuildResult(nil)
		for _, cat := range model.ScriptCategories {
			Expect(result.ByCategory).To(HaveKey(cat))
			Expect(result.ByCategory[cat]).To(BeEmpty())
		}
	})

	It("files unclassified clusters under uncategorized", func() {
		clusters := []scripts.Cluster{{Example: "hey there", Count: 3, Replies: 1}}

		result := scripts.BuildResult(clusters)
		Expect(result.ByCategory["uncategorized"]).To(HaveLen(1))

		pattern := result.ByCategory["uncategorized"][0]
		Expect(pattern.ID).To(Equal("script_1"))
		Expect(pattern.TimesSent).To(Equal(3))
		Expect(pattern.ReplyRate).To(Equal("33.3%"))
	})
})
