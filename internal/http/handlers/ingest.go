package handlers

import (
	"net/http"

	"github.com/docsentry/docsentry/internal/ingest"
	"github.com/docsentry/docsentry/pkg/logging"
)

// IngestHandler triggers corpus rebuilds.
type IngestHandler struct {
	corpus *ingest.Service
	logger *logging.Logger
}

// NewIngestHandler creates the ingest handler.
func NewIngestHandler(corpus *ingest.Service, logger *logging.Logger) *IngestHandler {
	if corpus == nil {
		panic("handlers: corpus service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &IngestHandler{corpus: corpus, logger: logger}
}

// IngestResponse is the rebuild endpoint payload.
type IngestResponse struct {
	Success   bool `json:"success"`
	Documents int  `json:"documents"`
}

// Ingest handles POST /api/ingest.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	count, err := h.corpus.Rebuild(r.Context())
	if err != nil {
		h.logger.Error("corpus rebuild failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, IngestResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, IngestResponse{Success: true, Documents: count})
}
