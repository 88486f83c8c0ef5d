package analysis

import "themochi.app/analytics/internal/model"

// TimeBinForHour maps an hour of day (0-23) onto one of the 8 fixed
// 3-hour buckets. Shared by the setter engines and the time series.
func TimeBinForHour(hour int) model.TimeBin {
	switch {
	case hour < 3:
		return model.TimeBin00
	case hour < 6:
		return model.TimeBin03
	case hour < 9:
		return model.TimeBin06
	case hour < 12:
		return model.TimeBin09
	case hour < 15:
		return model.TimeBin12
	case hour < 18:
		return model.TimeBin15
	case hour < 21:
		return model.TimeBin18
	default:
		return model.TimeBin21
	}
}

func zeroFilledBins() map[model.TimeBin]int {
	bins := make(map[model.TimeBin]int, len(model.TimeBins))
	for _, b := range model.TimeBins {
		bins[b] = 0
	}
	return bins
}

func zeroFilledStages() map[string]int {
	stages := make(map[string]int, len(model.Stages))
	for _, s := range model.Stages {
		stages[s] = 0
	}
	return stages
}
