package middleware

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gossip-lsp/weblsp/jsonrpc"
)

// Metrics counts dispatched messages per method.
type Metrics struct {
	mu      sync.RWMutex
	started time.Time
	methods map[string]*methodCounters
}

type methodCounters struct {
	count   atomic.Int64
	errors  atomic.Int64
	totalNs atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{started: time.Now(), methods: make(map[string]*methodCounters)}
}

func (m *Metrics) counters(method string) *methodCounters {
	m.mu.RLock()
	mc, ok := m.methods[method]
	m.mu.RUnlock()
	if ok {
		return mc
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if mc, ok := m.methods[method]; ok {
		return mc
	}
	mc = &methodCounters{}
	m.methods[method] = mc
	return mc
}

// MethodStats is a point-in-time copy of the counters for one method.
type MethodStats struct {
	Method    string        `json:"method"`
	Count     int64         `json:"count"`
	Errors    int64         `json:"errors"`
	TotalTime time.Duration `json:"totalTimeNs"`
}

// Snapshot returns the counters ordered by method name.
func (m *Metrics) Snapshot() []MethodStats {
	m.mu.RLock()
	out := make([]MethodStats, 0, len(m.methods))
	for name, mc := range m.methods {
		out = append(out, MethodStats{
			Method:    name,
			Count:     mc.count.Load(),
			Errors:    mc.errors.Load(),
			TotalTime: time.Duration(mc.totalNs.Load()),
		})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

// Uptime reports how long ago the collector was created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.started)
}

// Telemetry records the count, error count and latency of every message.
func Telemetry(metrics *Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
			mc := metrics.counters(method)
			start := time.Now()
			result, err := next(ctx, method, params)

			mc.count.Add(1)
			mc.totalNs.Add(int64(time.Since(start)))
			if err != nil {
				mc.errors.Add(1)
			}
			return result, err
		}
	}
}
