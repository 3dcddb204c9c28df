// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Video analytics
	IncVideoView(source string)
	IncEngagement(kind string) // kind: "like", "share" or "comment"

	// Leads
	IncLeadCreated()
	IncLeadStatusChanged(status string)

	// Shares
	IncShareCreated()
	IncShareView()
	IncShareLead()
	AddSharesExpired(n int)

	// Store I/O
	IncStoreError(key string)
	ObserveStoreDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
