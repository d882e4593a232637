// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Generation outcome labels.
const (
	StatusSuccess = "success"
	StatusDenied  = "denied"
	StatusFailed  = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Usage gate metrics
	IncGateDecision(feature string, allowed bool)
	IncUsageIncrement(status string) // status: "success" or "failed"
	IncUsageReset()

	// Generation metrics
	IncGeneration(feature, status string) // status: "success", "denied", "failed"
	ObserveExternalCall(service string, duration time.Duration, failed bool)

	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
