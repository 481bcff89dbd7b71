package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker counts controller operation outcomes per operation name.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*OpStats
}

// OpStats holds the counters for one operation.
// Fields are accessed atomically.
type OpStats struct {
	OK     int64 `json:"ok"`
	Failed int64 `json:"failed"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*OpStats),
	}
}

// getStats returns the stats object for an operation, creating it if needed.
func (t *Tracker) getStats(op string) *OpStats {
	t.mu.RLock()
	s, ok := t.stats[op]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[op]; ok {
		return s
	}
	s = &OpStats{}
	t.stats[op] = s
	return s
}

// Track records one outcome of op.
func (t *Tracker) Track(op string, err error) {
	if err != nil {
		t.TrackFailure(op)
		return
	}
	t.TrackSuccess(op)
}

func (t *Tracker) TrackSuccess(op string) {
	atomic.AddInt64(&t.getStats(op).OK, 1)
}

func (t *Tracker) TrackFailure(op string) {
	atomic.AddInt64(&t.getStats(op).Failed, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]OpStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]OpStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = OpStats{
			OK:     atomic.LoadInt64(&v.OK),
			Failed: atomic.LoadInt64(&v.Failed),
		}
	}
	return result
}

// Reset zeroes every counter but keeps the known operations.
func (t *Tracker) Reset() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, v := range t.stats {
		atomic.StoreInt64(&v.OK, 0)
		atomic.StoreInt64(&v.Failed, 0)
	}
}
