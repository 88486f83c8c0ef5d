package scripts_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"themochi.app/analytics/internal/model"
	"themochi.app/analytics/internal/scripts"
)

var _ = Describe("Search", func() {
	var conversations []model.Conversation

	BeforeEach(func() {
		withSentBy := creatorMsg("Hey! Are you still interested in the program?", "2024-01-01T10:00:00Z")
		withSentBy.SentBy = "anna@example.com"

		conversations = []model.Conversation{
			{
				ID:          "c1",
				SetterEmail: "owner@example.com",
				Messages: []model.Message{
					withSentBy,
					leadMsg("yes!", "2024-01-01T10:05:00Z"),
				},
			},
			{
				ID: "c2",
				Messages: []model.Message{
					creatorMsg("are you still interested in the program", "2024-02-01T10:00:00Z"),
				},
			},
			{
				ID: "c3",
				Messages: []model.Message{
					creatorMsg("quick note about the invoice", "2024-02-01T11:00:00Z"),
					leadMsg("thanks", "2024-02-01T12:00:00Z"),
				},
			},
		}
	})

	It("returns matches above the threshold with reply attribution", func() {
		result := scripts.Search(conversations, "are you still interested in the program?", scripts.SearchOptions{
			Threshold: 90,
		})

		Expect(result.TotalMatches).To(Equal(2))
		Expect(result.TotalReplies).To(Equal(1))
		Expect(result.ReplyRate).To(Equal(50.0))
		Expect(result.Matches).To(HaveLen(2))
	})

	It("falls back from sent-by to the owner, then to Unknown", func() {
		result := scripts.Search(conversations, "are you still interested in the program?", scripts.SearchOptions{
			Threshold: 90,
		})

		Expect(result.Setters).To(HaveKey("anna@example.com"))
		Expect(result.Setters).To(HaveKey("Unknown"))

		anna := result.Setters["anna@example.com"]
		Expect(anna.Matches).To(Equal(1))
		Expect(anna.Replies).To(Equal(1))
		Expect(anna.ReplyRate).To(Equal(100.0))
	})

	It("honors the date filter", func() {
		result := scripts.Search(conversations, "are you still interested in the program?", scripts.SearchOptions{
			Threshold: 90,
			DateFrom:  "2024-02-01",
			DateTo:    "2024-02-28",
		})

		Expect(result.TotalMatches).To(Equal(1))
		Expect(result.Matches[0].ConversationID).To(Equal("c2"))
	})

	It("searches lead messages when asked", func() {
		result := scripts.Search(conversations, "thanks", scripts.SearchOptions{
			Threshold:    95,
			SenderFilter: model.SenderLead,
		})

		Expect(result.TotalMatches).To(Equal(1))
		Expect(result.Matches[0].ConversationID).To(Equal("c3"))
	})

	It("localizes message days before filtering", func() {
		loc, err := time.LoadLocation("America/New_York")
		Expect(err).NotTo(HaveOccurred())

		// 02:00 UTC on Feb 2 is still Feb 1 in New York.
		late := []model.Conversation{{
			ID:       "c1",
			Messages: []model.Message{creatorMsg("checking in", "2024-02-02T02:00:00Z")},
		}}

		result := scripts.Search(late, "checking in", scripts.SearchOptions{
			Threshold: 95,
			DateTo:    "2024-02-01",
			Location:  loc,
		})
		Expect(result.TotalMatches).To(Equal(1))
	})

	It("truncates long match content to a snippet", func() {
		long := strings.Repeat("interested in the program ", 10)
		conversations := []model.Conversation{{
			ID:       "c1",
			Messages: []model.Message{creatorMsg(long, "2024-01-01T10:00:00Z")},
		}}

		result := scripts.Search(conversations, "interested in the program", scripts.SearchOptions{
			Threshold: 90,
			Mode:      scripts.MatchPartial,
		})
		Expect(result.TotalMatches).To(Equal(1))
		Expect(len(result.Matches[0].Content)).To(Equal(100))
	})
})
