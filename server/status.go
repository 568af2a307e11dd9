package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/heraldai/herald/version"
)

// HandleHealth handles GET /health with a cheap liveness payload.
func (s *HeraldServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()

	health := map[string]interface{}{
		"status":     "ok",
		"version":    versionInfo.Version,
		"commit":     versionInfo.CommitHash,
		"build_time": versionInfo.BuildTime,
		"clients":    s.ClientCount(),
	}

	writeJSON(w, http.StatusOK, health)
}

// HandleStatus handles GET /api/status with runtime and scheduler
// detail: uptime, memory, job counts by status, dispatcher loop
// counters, and the inbox unread count.
func (s *HeraldServer) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	owner := s.ownerFromRequest(r)

	status := map[string]interface{}{
		"status":         "ok",
		"version":        version.Get().Version,
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"ws_clients":     s.ClientCount(),
		"event_drops":    s.broadcastDrops.Load(),
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	status["heap_alloc_bytes"] = memStats.HeapAlloc

	if v, err := mem.VirtualMemory(); err == nil {
		status["system_memory_used_percent"] = v.UsedPercent
	}

	if counts, err := s.jobStore.CountByStatus(r.Context()); err == nil {
		status["jobs_by_status"] = counts
	} else {
		s.logger.Warnw("Failed to count jobs for status endpoint", "error", err)
	}

	if next, err := s.jobStore.NextScheduled(r.Context()); err == nil && next != nil {
		status["next_job_id"] = next.ID
		if next.NextRunAt != nil {
			status["next_run_at"] = next.NextRunAt.UTC().Format(time.RFC3339)
		}
	}

	if unread, err := s.notifStore.CountUnread(r.Context(), owner); err == nil {
		status["unread_notifications"] = unread
	}

	if s.dispatcher != nil {
		status["dispatcher"] = s.dispatcher.GetStats()
	}

	writeJSON(w, http.StatusOK, status)
}
