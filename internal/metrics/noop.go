package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncGateDecision is a no-op.
func (n *NoopRecorder) IncGateDecision(feature string, allowed bool) {}

// IncUsageIncrement is a no-op.
func (n *NoopRecorder) IncUsageIncrement(status string) {}

// IncUsageReset is a no-op.
func (n *NoopRecorder) IncUsageReset() {}

// IncGeneration is a no-op.
func (n *NoopRecorder) IncGeneration(feature, status string) {}

// ObserveExternalCall is a no-op.
func (n *NoopRecorder) ObserveExternalCall(service string, duration time.Duration, failed bool) {}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}
