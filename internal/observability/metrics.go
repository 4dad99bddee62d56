package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	refusals     map[string]int64
	sweeps       map[string]SweepStats
}

// SweepStats accumulates sweeper outcomes per cycle kind.
type SweepStats struct {
	Cycles       int64         `json:"cycles"`
	Tickets      int64         `json:"tickets"`
	Changed      int64         `json:"changed"`
	Failed       int64         `json:"failed"`
	Intents      int64         `json:"intents"`
	LastDuration time.Duration `json:"last_duration"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		refusals:     make(map[string]int64),
		sweeps:       make(map[string]SweepStats),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
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

// RecordRefusal counts refused ticket actions by action and error code.
func (m *Metrics) RecordRefusal(action, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refusals[action+"|"+code]++
}

// RecordSweep adds one sweeper cycle.
func (m *Metrics) RecordSweep(kind string, tickets, changed, failed, intents int, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.sweeps[kind]
	stats.Cycles++
	stats.Tickets += int64(tickets)
	stats.Changed += int64(changed)
	stats.Failed += int64(failed)
	stats.Intents += int64(intents)
	stats.LastDuration = duration
	m.sweeps[kind] = stats
}

// Snapshot is a copy of all counters.
type Snapshot struct {
	Requests map[string]int64      `json:"requests"`
	Errors   map[string]int64      `json:"errors"`
	Refusals map[string]int64      `json:"refusals"`
	Sweeps   map[string]SweepStats `json:"sweeps"`
}

// Snapshot copies the counters under lock.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		Requests: make(map[string]int64, len(m.requestCount)),
		Errors:   make(map[string]int64, len(m.errorCount)),
		Refusals: make(map[string]int64, len(m.refusals)),
		Sweeps:   make(map[string]SweepStats, len(m.sweeps)),
	}
	for k, v := range m.requestCount {
		snap.Requests[k] = v
	}
	for k, v := range m.errorCount {
		snap.Errors[k] = v
	}
	for k, v := range m.refusals {
		snap.Refusals[k] = v
	}
	for k, v := range m.sweeps {
		snap.Sweeps[k] = v
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
