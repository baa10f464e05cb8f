// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Counter registry for lifecycle accounting.

package control

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Well-known metric keys recorded by the harness.
const (
	MetricEventsPrefix         = "events."
	MetricMessagesSent         = "messages.sent"
	MetricMessagesCompleted    = "messages.completed"
	MetricMessagesFailed       = "messages.failed"
	MetricReleaseErrors        = "pool.release_errors"
	MetricConnectionsDestroyed = "connections.destroyed"
	MetricLoopStops            = "loop.stops"
)

// MetricsRegistry holds named counters and gauges.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]int64
	gauges   map[string]any
	updated  time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]int64),
		gauges:   make(map[string]any),
	}
}

// Inc adds one to counter key.
func (mr *MetricsRegistry) Inc(key string) { mr.Add(key, 1) }

// Add adds delta to counter key.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.Lock()
	mr.counters[key] += delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Set sets or updates a gauge.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.gauges[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Counter returns the value of counter key, zero when unset.
func (mr *MetricsRegistry) Counter(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.counters[key]
}

// Updated returns the time of the last write.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot returns counters and gauges merged into one map.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.counters)+len(mr.gauges))
	for k, v := range mr.counters {
		out[k] = v
	}
	for k, v := range mr.gauges {
		out[k] = v
	}
	return out
}

// Keys returns every recorded key, sorted.
func (mr *MetricsRegistry) Keys() []string {
	snap := mr.GetSnapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fields renders the snapshot for structured logging.
func (mr *MetricsRegistry) Fields() logrus.Fields {
	return logrus.Fields(mr.GetSnapshot())
}
