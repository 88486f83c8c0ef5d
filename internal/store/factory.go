package store

import (
	"themochi.app/analytics/core/db"
)

type Stores struct {
	db *db.DB
}

func NewStores(database *db.DB) *Stores {
	return &Stores{db: database}
}

func (s *Stores) AnalysisJobs() AnalysisJobStore {
	return newAnalysisJobStore(s.db)
}

func (s *Stores) AnalysisRuns() AnalysisRunStore {
	return newAnalysisRunStore(s.db)
}
