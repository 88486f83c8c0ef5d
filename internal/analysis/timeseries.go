package analysis

import (
	"time"

	"themochi.app/analytics/internal/ingest"
	"themochi.app/analytics/internal/model"
)

// DelayedResponseThreshold marks a CREATOR message as a delayed
// response when the immediately preceding LEAD message is older than
// this. Unlike reply detection, this is a backward, adjacent-message
// check.
const DelayedResponseThreshold = 24 * time.Hour

// BuildTimeSeries buckets conversation creation into calendar days and
// message activity into time-of-day bins, localized to loc. The day
// range [start, end] is inclusive and fully zero-filled: every day
// appears with all known stages, and every histogram carries all 8
// bins.
func BuildTimeSeries(conversations []model.Conversation, start, end time.Time, loc *time.Location) model.TimeSeries {
	series := model.TimeSeries{
		LeadActivityByTime:     zeroFilledBins(),
		SetterActivityByTime:   zeroFilledBins(),
		DelayedResponsesByTime: zeroFilledBins(),
	}

	dailyStages := make(map[string]map[string]int)

	for _, conv := range conversations {
		createdAt, err := ingest.ParseTimestamp(conv.CreatedAt)
		if err == nil && conv.Stage != "" {
			day := createdAt.In(loc).Format("2006-01-02")
			if dailyStages[day] == nil {
				dailyStages[day] = make(map[string]int)
			}
			dailyStages[day][conv.Stage]++
		}

		for i, msg := range conv.Messages {
			localHour := msg.SentAt.In(loc).Hour()
			bin := TimeBinForHour(localHour)

			switch msg.Sender {
			case model.SenderLead:
				series.LeadActivityByTime[bin]++
			case model.SenderCreator:
				series.SetterActivityByTime[bin]++

				if i > 0 && conv.Messages[i-1].Sender == model.SenderLead {
					gap := msg.SentAt.Sub(conv.Messages[i-1].SentAt)
					if gap > DelayedResponseThreshold {
						series.DelayedResponsesByTime[bin]++
					}
				}
			}
		}
	}

	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		iso := day.Format("2006-01-02")
		stages := zeroFilledStages()
		for stage, count := range dailyStages[iso] {
			if _, known := stages[stage]; known {
				stages[stage] = count
			}
		}
		series.StageChangesByDay = append(series.StageChangesByDay, model.DayStages{
			Date:    day.Format("Mon, 02 Jan 06"),
			DateISO: iso,
			Stages:  stages,
		})
	}

	return series
}
