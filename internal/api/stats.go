package api

import (
	"net/http"
	"runtime"
	"time"

	"tourguide/pkg/session"
	"tourguide/pkg/tracker"
)

// StatsHandler reports operation counters and process diagnostics.
type StatsHandler struct {
	mgr     *session.Manager
	started time.Time
}

func NewStatsHandler(mgr *session.Manager) *StatsHandler {
	return &StatsHandler{mgr: mgr, started: time.Now()}
}

type DiagnosticsDTO struct {
	MemoryMB   uint64 `json:"memory_mb"`
	Goroutines int    `json:"goroutines"`
	UptimeSec  int64  `json:"uptime_sec"`
}

type StatsResponse struct {
	SessionID   string                     `json:"session_id"`
	Revision    uint64                     `json:"revision"`
	Tours       int                        `json:"tours"`
	Events      int                        `json:"events"`
	Operations  map[string]tracker.OpStats `json:"operations"`
	Diagnostics DiagnosticsDTO             `json:"diagnostics"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	respondJSON(w, http.StatusOK, StatsResponse{
		SessionID:  h.mgr.ID(),
		Revision:   h.mgr.Snapshot().Revision,
		Tours:      len(h.mgr.Tours()),
		Events:     len(h.mgr.Events()),
		Operations: h.mgr.Tracker().Snapshot(),
		Diagnostics: DiagnosticsDTO{
			MemoryMB:   mem.Alloc / 1024 / 1024,
			Goroutines: runtime.NumGoroutine(),
			UptimeSec:  int64(time.Since(h.started).Seconds()),
		},
	})
}
