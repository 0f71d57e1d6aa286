package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/docsentry/docsentry/internal/chat"
	"github.com/docsentry/docsentry/internal/ingest"
	"github.com/docsentry/docsentry/internal/retrieval"
	"github.com/docsentry/docsentry/internal/security"
	"github.com/docsentry/docsentry/pkg/logging"
)

// maxMessageBytes bounds the request body; the sanitizer truncates the
// text again downstream.
const maxMessageBytes = 64 << 10

// ChatHandler serves the blocking and streaming chat endpoints.
type ChatHandler struct {
	orch   *chat.Orchestrator
	init   *ingest.Initializer
	logger *logging.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(orch *chat.Orchestrator, init *ingest.Initializer, logger *logging.Logger) *ChatHandler {
	if orch == nil || init == nil {
		panic("handlers: chat dependencies cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{orch: orch, init: init, logger: logger}
}

// ChatRequest is the body of both chat endpoints.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatMetadata is attached to every non-blocked answer.
type ChatMetadata struct {
	Classification security.Classification `json:"classification"`
	Cached         bool                    `json:"cached"`
	TokensUsed     int                     `json:"tokensUsed"`
}

// ChatResponse is the blocking endpoint's reply.
type ChatResponse struct {
	Response       string                  `json:"response"`
	Sources        []retrieval.SourceRef   `json:"sources,omitempty"`
	Metadata       *ChatMetadata           `json:"metadata,omitempty"`
	Blocked        bool                    `json:"blocked,omitempty"`
	Classification security.Classification `json:"classification,omitempty"`
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	message, ok := h.readMessage(w, r)
	if !ok {
		return
	}

	answer, err := h.orch.Respond(r.Context(), message)
	if err != nil {
		h.logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	if answer.Blocked {
		writeJSON(w, http.StatusOK, ChatResponse{
			Response:       answer.Response,
			Blocked:        true,
			Classification: answer.Classification,
		})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Response: answer.Response,
		Sources:  answer.Sources,
		Metadata: &ChatMetadata{
			Classification: answer.Classification,
			Cached:         answer.Cached,
			TokensUsed:     answer.TokensUsed,
		},
	})
}

// ChatStream handles POST /api/chat/stream with SSE framing.
func (h *ChatHandler) ChatStream(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	message, ok := h.readMessage(w, r)
	if !ok {
		return
	}

	sender, err := chat.NewSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Streaming is not supported.")
		return
	}
	if err := h.orch.StreamRespond(r.Context(), message, sender); err != nil {
		// Headers are already on the wire; all we can do is log.
		h.logger.Error("stream request failed", "error", err)
	}
}

func (h *ChatHandler) ready(w http.ResponseWriter) bool {
	if h.init.Ready() {
		return true
	}
	writeError(w, http.StatusServiceUnavailable, "Service initializing")
	return false
}

func (h *ChatHandler) readMessage(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req ChatRequest
	body := http.MaxBytesReader(w, r.Body, maxMessageBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be JSON with a message field.")
		return "", false
	}
	return strings.TrimSpace(req.Message), true
}
