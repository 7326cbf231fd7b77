package ports

import "time"

// PassStats are the counters of one finished ingestion pass.
type PassStats struct {
	Committed int
	Evicted   int
	Rejected  int
	Duration  time.Duration
}

// Metrics records ingestion activity.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type Metrics interface {
	// PassSucceeded records a completed pass of the agent kind.
	PassSucceeded(kind string, stats PassStats)
	// PassFailed records a failed pass of the agent kind.
	PassFailed(kind string)
}
