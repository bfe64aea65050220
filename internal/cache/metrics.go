package cache

import (
	"strings"
	"sync"
	"time"
)

const otherArea = "other"

// AreaMetrics are the counters of one key area. For the session deny-list a
// hit is a revoked session and a miss is a live one.
type AreaMetrics struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	Sets    int64   `json:"sets"`
	Deletes int64   `json:"deletes"`
	HitRate float64 `json:"hit_rate"`
}

func (a *AreaMetrics) add(o AreaMetrics) {
	a.Hits += o.Hits
	a.Misses += o.Misses
	a.Errors += o.Errors
	a.Sets += o.Sets
	a.Deletes += o.Deletes
}

func (a AreaMetrics) withHitRate() AreaMetrics {
	if total := a.Hits + a.Misses; total > 0 {
		a.HitRate = float64(a.Hits) / float64(total) * 100.0
	}
	return a
}

type MetricsSnapshot struct {
	Total     AreaMetrics            `json:"total"`
	Areas     map[string]AreaMetrics `json:"areas"`
	StartTime time.Time              `json:"start_time"`
}

// CacheMetrics counts cache traffic per key area, the key part before the
// first ':' ("stats", "revoked_session"), so the stats cache and the session
// deny-list are reported apart.
type CacheMetrics struct {
	mu        sync.Mutex
	areas     map[string]*AreaMetrics
	startTime time.Time
}

func NewCacheMetrics() *CacheMetrics {
	return &CacheMetrics{
		areas:     make(map[string]*AreaMetrics),
		startTime: time.Now(),
	}
}

func keyArea(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return otherArea
}

func (m *CacheMetrics) record(key string, fn func(a *AreaMetrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	area := keyArea(key)
	a, ok := m.areas[area]
	if !ok {
		a = &AreaMetrics{}
		m.areas[area] = a
	}
	fn(a)
}

func (m *CacheMetrics) RecordHit(key string) {
	m.record(key, func(a *AreaMetrics) { a.Hits++ })
}

func (m *CacheMetrics) RecordMiss(key string) {
	m.record(key, func(a *AreaMetrics) { a.Misses++ })
}

func (m *CacheMetrics) RecordError(key string) {
	m.record(key, func(a *AreaMetrics) { a.Errors++ })
}

func (m *CacheMetrics) RecordSet(key string) {
	m.record(key, func(a *AreaMetrics) { a.Sets++ })
}

func (m *CacheMetrics) RecordDelete(key string) {
	m.record(key, func(a *AreaMetrics) { a.Deletes++ })
}

func (m *CacheMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		Areas:     make(map[string]AreaMetrics, len(m.areas)),
		StartTime: m.startTime,
	}
	for name, a := range m.areas {
		snap.Areas[name] = a.withHitRate()
		snap.Total.add(*a)
	}
	snap.Total = snap.Total.withHitRate()
	return snap
}
