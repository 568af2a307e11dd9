package server

import (
	"net/http"
	"strings"

	"github.com/heraldai/herald/internal/id"
	"github.com/heraldai/herald/logger"
)

// setupHTTPRoutes configures all HTTP handlers
func (s *HeraldServer) setupHTTPRoutes() {
	s.mux.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))
	s.mux.HandleFunc("/api/status", s.corsMiddleware(s.HandleStatus))

	s.mux.HandleFunc("/api/jobs", s.corsMiddleware(s.HandleJobs))                       // List jobs (GET)
	s.mux.HandleFunc("/api/jobs/reminder", s.corsMiddleware(s.HandleCreateReminder))    // Create reminder job (POST)
	s.mux.HandleFunc("/api/jobs/agent-task", s.corsMiddleware(s.HandleCreateAgentTask)) // Create agent task job (POST)
	s.mux.HandleFunc("/api/jobs/follow-up", s.corsMiddleware(s.HandleCreateFollowUp))   // Create follow-up job (POST)
	s.mux.HandleFunc("/api/jobs/", s.corsMiddleware(s.HandleJob))                       // Individual job and runs (GET/PATCH/DELETE)

	s.mux.HandleFunc("/api/notifications", s.corsMiddleware(s.HandleNotifications))        // List inbox entries (GET)
	s.mux.HandleFunc("/api/notifications/read-all", s.corsMiddleware(s.HandleMarkAllRead)) // Mark every entry read (POST)
	s.mux.HandleFunc("/api/notifications/", s.corsMiddleware(s.HandleNotification))        // Mark one entry read (POST {id}/read)

	s.mux.HandleFunc("/api/tasks", s.corsMiddleware(s.HandleTasks)) // List/create tasks (GET/POST)
	s.mux.HandleFunc("/api/tasks/", s.corsMiddleware(s.HandleTask)) // Individual task and comments (GET/POST)

	s.mux.HandleFunc("/api/config", s.corsMiddleware(s.HandleConfig)) // Effective settings (GET), overlay updates (POST/PATCH)

	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}

	s.mux.HandleFunc("/ws", s.corsMiddleware(s.HandleWebSocket))
}

// Handler returns the configured route tree. Exposed for tests and
// for embedding the API under another mux.
func (s *HeraldServer) Handler() http.Handler {
	return s.mux
}

// corsMiddleware adds CORS headers to HTTP responses using configured allowed origins
// Uses the same origin validation as WebSocket connections (server.allowed_origins config)
func (s *HeraldServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Herald-Owner")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		// Stamp log identity so anything a handler logs can be traced
		// back to this request and its owner scope.
		ctx := logger.WithOwnerID(r.Context(), s.ownerFromRequest(r))
		ctx = logger.WithRequestID(ctx, id.NewRequestID())
		next(w, r.WithContext(ctx))
	}
}

// checkOrigin validates request origin against configured allowed origins.
// Requests with no Origin header (CLI clients, tests) are always allowed.
func (s *HeraldServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	// Prefix matching so any port on an allowed host passes
	for _, allowedOrigin := range s.cfg.GetServerAllowedOrigins() {
		if strings.HasPrefix(origin, allowedOrigin) {
			return true
		}
	}
	return false
}

// ownerFromRequest resolves the owner scope of a request. The header
// wins; absent that, the configured default owner applies.
func (s *HeraldServer) ownerFromRequest(r *http.Request) string {
	if owner := r.Header.Get("X-Herald-Owner"); owner != "" {
		return owner
	}
	return s.cfg.GetOwnerID()
}
