package handlers

import (
	"net/http"
	"time"

	"github.com/docsentry/docsentry/internal/cache"
	"github.com/docsentry/docsentry/internal/ingest"
	"github.com/docsentry/docsentry/internal/security"
)

// HealthHandler reports service readiness and pipeline statistics.
type HealthHandler struct {
	started time.Time
	init    *ingest.Initializer
	corpus  *ingest.Service
	cache   cache.QueryCache
	guard   *security.Middleware
}

// NewHealthHandler creates the health handler. Uptime counts from now.
func NewHealthHandler(init *ingest.Initializer, corpus *ingest.Service, qc cache.QueryCache, guard *security.Middleware) *HealthHandler {
	return &HealthHandler{
		started: time.Now(),
		init:    init,
		corpus:  corpus,
		cache:   qc,
		guard:   guard,
	}
}

// HealthResponse is the health endpoint payload.
type HealthResponse struct {
	Status        string         `json:"status"`
	Documents     int            `json:"documents"`
	Cache         cache.Stats    `json:"cache"`
	Security      security.Stats `json:"security"`
	UptimeSeconds int64          `json:"uptime"`
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	if !h.init.Ready() {
		status = "initializing"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        status,
		Documents:     h.corpus.Documents(),
		Cache:         h.cache.Stats(),
		Security:      h.guard.Snapshot(),
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	})
}
