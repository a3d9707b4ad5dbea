package cryptoengine

import (
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// OperationMetrics tracks one engine operation.
type OperationMetrics struct {
	Count          uint64    `json:"count"`
	Failures       uint64    `json:"failures"`
	CacheHits      uint64    `json:"cache_hits"`
	BytesProcessed uint64    `json:"bytes_processed"`
	AverageLatency float64   `json:"average_latency_us"`
	MaxLatency     float64   `json:"max_latency_us"`
	LastOperation  time.Time `json:"last_operation"`
}

// Monitor records per-operation counts and latencies.
type Monitor struct {
	mu        sync.RWMutex
	ops       map[string]*OperationMetrics
	startTime time.Time
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{ops: make(map[string]*OperationMetrics), startTime: time.Now()}
}

// Record adds one completed operation.
func (m *Monitor) Record(op string, duration time.Duration, bytes int, cacheHit bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.ops[op]
	if !ok {
		om = &OperationMetrics{}
		m.ops[op] = om
	}
	latencyUs := float64(duration.Nanoseconds()) / 1e3

	om.Count++
	if err != nil {
		om.Failures++
	}
	if cacheHit {
		om.CacheHits++
	}
	if bytes > 0 {
		om.BytesProcessed += uint64(bytes)
	}

	// exponential moving average
	if om.AverageLatency == 0 {
		om.AverageLatency = latencyUs
	} else {
		om.AverageLatency = 0.9*om.AverageLatency + 0.1*latencyUs
	}
	if latencyUs > om.MaxLatency {
		om.MaxLatency = latencyUs
	}
	om.LastOperation = time.Now()
}

// Snapshot returns a copy of every operation's metrics.
func (m *Monitor) Snapshot() map[string]OperationMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]OperationMetrics, len(m.ops))
	for k, v := range m.ops {
		out[k] = *v
	}
	return out
}

// Operations returns the recorded operation names in order.
func (m *Monitor) Operations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.ops))
	for k := range m.ops {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Uptime returns the time since the monitor was created.
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// ExportJSON returns the snapshot as indented JSON.
func (m *Monitor) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(m.Snapshot(), "", "  ")
}
