package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	VideoViews           uint64
	EngagementLikes      uint64
	EngagementShares     uint64
	EngagementComments   uint64
	LeadsCreated         uint64
	LeadStatusChanges    uint64
	SharesCreated        uint64
	ShareViews           uint64
	ShareLeads           uint64
	SharesExpired        uint64
	StoreErrors          uint64
	StoreDurationCount   uint64
	StoreDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory. Used by /metrics and tests.
type InMemoryRecorder struct {
	videoViews           uint64
	engagementLikes      uint64
	engagementShares     uint64
	engagementComments   uint64
	leadsCreated         uint64
	leadStatusChanges    uint64
	sharesCreated        uint64
	shareViews           uint64
	shareLeads           uint64
	sharesExpired        uint64
	storeErrors          uint64
	storeDurationCount   uint64
	storeDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		VideoViews:           atomic.LoadUint64(&m.videoViews),
		EngagementLikes:      atomic.LoadUint64(&m.engagementLikes),
		EngagementShares:     atomic.LoadUint64(&m.engagementShares),
		EngagementComments:   atomic.LoadUint64(&m.engagementComments),
		LeadsCreated:         atomic.LoadUint64(&m.leadsCreated),
		LeadStatusChanges:    atomic.LoadUint64(&m.leadStatusChanges),
		SharesCreated:        atomic.LoadUint64(&m.sharesCreated),
		ShareViews:           atomic.LoadUint64(&m.shareViews),
		ShareLeads:           atomic.LoadUint64(&m.shareLeads),
		SharesExpired:        atomic.LoadUint64(&m.sharesExpired),
		StoreErrors:          atomic.LoadUint64(&m.storeErrors),
		StoreDurationCount:   atomic.LoadUint64(&m.storeDurationCount),
		StoreDurationTotalNs: atomic.LoadInt64(&m.storeDurationTotalNs),
	}
}

// IncVideoView increments the video view counter.
func (m *InMemoryRecorder) IncVideoView(source string) {
	atomic.AddUint64(&m.videoViews, 1)
}

// IncEngagement increments the counter for the engagement kind.
func (m *InMemoryRecorder) IncEngagement(kind string) {
	switch kind {
	case "like":
		atomic.AddUint64(&m.engagementLikes, 1)
	case "share":
		atomic.AddUint64(&m.engagementShares, 1)
	case "comment":
		atomic.AddUint64(&m.engagementComments, 1)
	}
}

// IncLeadCreated increments lead created counter.
func (m *InMemoryRecorder) IncLeadCreated() {
	atomic.AddUint64(&m.leadsCreated, 1)
}

// IncLeadStatusChanged increments lead status change counter.
func (m *InMemoryRecorder) IncLeadStatusChanged(status string) {
	atomic.AddUint64(&m.leadStatusChanges, 1)
}

// IncShareCreated increments share created counter.
func (m *InMemoryRecorder) IncShareCreated() {
	atomic.AddUint64(&m.sharesCreated, 1)
}

// IncShareView increments share view counter.
func (m *InMemoryRecorder) IncShareView() {
	atomic.AddUint64(&m.shareViews, 1)
}

// IncShareLead increments share lead counter.
func (m *InMemoryRecorder) IncShareLead() {
	atomic.AddUint64(&m.shareLeads, 1)
}

// AddSharesExpired adds to the expired-share cleanup counter.
func (m *InMemoryRecorder) AddSharesExpired(n int) {
	if n > 0 {
		atomic.AddUint64(&m.sharesExpired, uint64(n))
	}
}

// IncStoreError increments store failure counter.
func (m *InMemoryRecorder) IncStoreError(key string) {
	atomic.AddUint64(&m.storeErrors, 1)
}

// ObserveStoreDuration records the duration of a store round-trip.
func (m *InMemoryRecorder) ObserveStoreDuration(duration time.Duration) {
	atomic.AddUint64(&m.storeDurationCount, 1)
	atomic.AddInt64(&m.storeDurationTotalNs, duration.Nanoseconds())
}
