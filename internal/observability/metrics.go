package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for the HTTP surface and the
// routing engine.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	routingCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		routingCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// Routing engine counter names.
const (
	CounterAssignments        = "assignments"
	CounterFallbackMatches    = "fallback_matches"
	CounterUnassigned         = "unassigned"
	CounterEscalations        = "escalations"
	CounterManagerEscalations = "manager_escalations"
	CounterWarnings           = "warnings"
	CounterSweeps             = "sweeps"
	CounterMissingRules       = "missing_rules"
	CounterStaleWrites        = "stale_writes"
)

// RecordRouting increments a routing engine counter.
func (m *Metrics) RecordRouting(counter string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routingCount[counter]++
}

// RoutingCount returns the current value of a routing counter.
func (m *Metrics) RoutingCount(counter string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routingCount[counter]
}
