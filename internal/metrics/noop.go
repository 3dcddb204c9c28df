package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncVideoView(source string)                  {}
func (n *NoopRecorder) IncEngagement(kind string)                   {}
func (n *NoopRecorder) IncLeadCreated()                             {}
func (n *NoopRecorder) IncLeadStatusChanged(status string)          {}
func (n *NoopRecorder) IncShareCreated()                            {}
func (n *NoopRecorder) IncShareView()                               {}
func (n *NoopRecorder) IncShareLead()                               {}
func (n *NoopRecorder) AddSharesExpired(count int)                  {}
func (n *NoopRecorder) IncStoreError(key string)                    {}
func (n *NoopRecorder) ObserveStoreDuration(duration time.Duration) {}
