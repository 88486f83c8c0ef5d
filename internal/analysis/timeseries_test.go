package analysis_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"themochi.app/analytics/internal/analysis"
	"themochi.app/analytics/internal/model"
)

var _ = Describe("BuildTimeSeries", func() {
	day := func(iso string) time.Time {
		t, err := time.Parse("2006-01-02", iso)
		Expect(err).NotTo(HaveOccurred())
		return t
	}

	It("zero-fills every day of the range with all known stages", func() {
		series := analysis.BuildTimeSeries(nil, day("2024-03-01"), day("2024-03-03"), time.UTC)

		Expect(series.StageChangesByDay).To(HaveLen(3))
		Expect(series.StageChangesByDay[0].DateISO).To(Equal("2024-03-01"))
		Expect(series.StageChangesByDay[0].Date).To(Equal("Fri, 01 Mar 24"))
		Expect(series.StageChangesByDay[2].DateISO).To(Equal("2024-03-03"))

		for _, d := range series.StageChangesByDay {
			Expect(d.Stages).To(HaveLen(len(model.Stages)))
			for _, count := range d.Stages {
				Expect(count).To(Equal(0))
			}
		}
	})

	It("always carries all 8 bins in every histogram", func() {
		series := analysis.BuildTimeSeries(nil, day("2024-03-01"), day("2024-03-01"), time.UTC)

		Expect(series.LeadActivityByTime).To(HaveLen(8))
		Expect(series.SetterActivityByTime).To(HaveLen(8))
		Expect(series.DelayedResponsesByTime).To(HaveLen(8))
	})

	It("buckets conversation creation by localized calendar day", func() {
		conversations := []model.Conversation{{
			ID:        "c1",
			Stage:     model.StageNewLead,
			CreatedAt: "2024-03-02T10:00:00Z",
		}}

		series := analysis.BuildTimeSeries(conversations, day("2024-03-01"), day("2024-03-03"), time.UTC)
		Expect(series.StageChangesByDay[1].Stages[model.StageNewLead]).To(Equal(1))
		Expect(series.StageChangesByDay[0].Stages[model.StageNewLead]).To(Equal(0))
	})

	It("drops unknown stages from the per-day breakdown", func() {
		conversations := []model.Conversation{{
			ID:        "c1",
			Stage:     "SOMETHING_CUSTOM",
			CreatedAt: "2024-03-01T10:00:00Z",
		}}

		series := analysis.BuildTimeSeries(conversations, day("2024-03-01"), day("2024-03-01"), time.UTC)
		Expect(series.StageChangesByDay[0].Stages).NotTo(HaveKey("SOMETHING_CUSTOM"))
	})

	It("localizes message hours before binning", func() {
		loc, err := time.LoadLocation("America/New_York")
		Expect(err).NotTo(HaveOccurred())

		conversations := []model.Conversation{{
			ID: "c1",
			Messages: []model.Message{
				lead("2024-03-01T23:30:00Z"), // 18:30 in New York
			},
		}}

		series := analysis.BuildTimeSeries(conversations, day("2024-03-01"), day("2024-03-01"), loc)
		Expect(series.LeadActivityByTime[model.TimeBin18]).To(Equal(1))
		Expect(series.LeadActivityByTime[model.TimeBin21]).To(Equal(0))
	})

	Describe("delayed responses", func() {
		It("flags a creator message whose adjacent preceding lead is older than 24h", func() {
			conversations := []model.Conversation{{
				ID: "c1",
				Messages: []model.Message{
					lead("2024-03-01T10:00:00Z"),
					creator("2024-03-02T11:00:00Z"), // 25h gap
				},
			}}

			series := analysis.BuildTimeSeries(conversations, day("2024-03-01"), day("2024-03-02"), time.UTC)
			Expect(series.DelayedResponsesByTime[model.TimeBin09]).To(Equal(1))
		})

		It("does not flag prompt responses", func() {
			conversations := []model.Conversation{{
				ID: "c1",
				Messages: []model.Message{
					lead("2024-03-01T10:00:00Z"),
					creator("2024-03-01T11:00:00Z"),
				},
			}}

			series := analysis.BuildTimeSeries(conversations, day("2024-03-01"), day("2024-03-01"), time.UTC)
			for _, count := range series.DelayedResponsesByTime {
				Expect(count).To(Equal(0))
			}
		})

		It("requires the preceding message to be a lead", func() {
			conversations := []model.Conversation{{
				ID: "c1",
				Messages: []model.Message{
					creator("2024-03-01T10:00:00Z"),
					creator("2024-03-03T10:00:00Z"), // long gap but follows a creator message
				},
			}}

			series := analysis.BuildTimeSeries(conversations, day("2024-03-01"), day("2024-03-03"), time.UTC)
			for _, count := range series.DelayedResponsesByTime {
				Expect(count).To(Equal(0))
			}
		})
	})
})
