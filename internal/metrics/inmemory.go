package metrics

import (
	"sync"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	GateAllowed        uint64
	GateDenied         uint64
	Generations        map[string]uint64 // keyed by "feature/status"
	ExternalCalls      map[string]uint64 // keyed by service
	ExternalFailures   map[string]uint64 // keyed by service
	UsageIncrements    uint64
	UsageIncrementErrs uint64
	UsageResets        uint64
	HTTPRequests       uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{snap: Snapshot{
		Generations:      map[string]uint64{},
		ExternalCalls:    map[string]uint64{},
		ExternalFailures: map[string]uint64{},
	}}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.snap
	out.Generations = copyCounts(m.snap.Generations)
	out.ExternalCalls = copyCounts(m.snap.ExternalCalls)
	out.ExternalFailures = copyCounts(m.snap.ExternalFailures)
	return out
}

// IncGateDecision counts allowed and denied gate decisions.
func (m *InMemoryRecorder) IncGateDecision(feature string, allowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if allowed {
		m.snap.GateAllowed++
	} else {
		m.snap.GateDenied++
	}
}

// IncUsageIncrement counts usage counter writes.
func (m *InMemoryRecorder) IncUsageIncrement(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == StatusSuccess {
		m.snap.UsageIncrements++
	} else {
		m.snap.UsageIncrementErrs++
	}
}

// IncUsageReset counts premium counter resets.
func (m *InMemoryRecorder) IncUsageReset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.UsageResets++
}

// IncGeneration counts generation outcomes.
func (m *InMemoryRecorder) IncGeneration(feature, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.Generations[feature+"/"+status]++
}

// ObserveExternalCall counts calls to external services.
func (m *InMemoryRecorder) ObserveExternalCall(service string, duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.ExternalCalls[service]++
	if failed {
		m.snap.ExternalFailures[service]++
	}
}

// ObserveHTTPRequest counts served requests.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap.HTTPRequests++
}

func copyCounts(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
