package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/docsentry/docsentry/internal/retrieval"
)

// StreamEvent is one SSE payload. The zero value of every optional field
// is omitted so each event shape stays minimal on the wire.
type StreamEvent struct {
	Chunk    string                `json:"chunk,omitempty"`
	Replace  string                `json:"replace,omitempty"`
	Sources  []retrieval.SourceRef `json:"sources,omitempty"`
	Done     bool                  `json:"done"`
	Cached   bool                  `json:"cached,omitempty"`
	Filtered bool                  `json:"filtered,omitempty"`
	Error    bool                  `json:"error,omitempty"`
}

// EventSender delivers stream events to the client.
type EventSender interface {
	Send(event StreamEvent) error
}

// ErrStreamingUnsupported is returned when the response writer cannot
// flush incrementally.
var ErrStreamingUnsupported = errors.New("chat: response writer does not support streaming")

// SSEWriter frames events as `data: <JSON>\n\n` over an HTTP response.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter prepares the response for server-sent events and returns
// a sender bound to it.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// Disable proxy buffering so chunks reach the browser as they happen.
	h.Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Send writes one event frame and flushes it.
func (s *SSEWriter) Send(event StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("chat: event marshal failed: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
