package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsentry/docsentry/internal/cache"
	"github.com/docsentry/docsentry/internal/chat"
	"github.com/docsentry/docsentry/internal/http/handlers"
	"github.com/docsentry/docsentry/internal/ingest"
	"github.com/docsentry/docsentry/internal/llm"
	"github.com/docsentry/docsentry/internal/retrieval"
	"github.com/docsentry/docsentry/internal/security"
)

type staticEmbedder struct{ dim int }

func (s staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, _ := s.EmbedBatch(ctx, []string{text})
	return vecs[0], nil
}

func (s staticEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, s.dim)
		v[0] = 1
		out[i] = v
	}
	return out, nil
}

func (s staticEmbedder) Dimension() int { return s.dim }

type scriptedLLM struct{ text string }

func (s *scriptedLLM) Complete(context.Context, string, string) (*llm.Completion, error) {
	return &llm.Completion{Text: s.text, TokensUsed: 11}, nil
}

func (s *scriptedLLM) Stream(context.Context, string, string) (llm.Stream, error) {
	return &scriptedStream{text: s.text}, nil
}

type scriptedStream struct {
	text string
	sent bool
}

func (s *scriptedStream) Recv() (string, error) {
	if s.sent {
		return "", io.EOF
	}
	s.sent = true
	return s.text, nil
}

func (s *scriptedStream) Close() error { return nil }

func newTestRouter(t *testing.T, maxRequests int) http.Handler {
	t.Helper()

	root := t.TempDir()
	docPath := filepath.Join(root, "products", "PMP-25-manual.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(docPath), 0o755))
	require.NoError(t, os.WriteFile(docPath, []byte("The PMP-25 bracket has four 6mm mounting holes."), 0o644))

	embedder := staticEmbedder{dim: 4}
	pipeline := ingest.NewPipeline(embedder, nil, root, "", nil)
	corpus := ingest.NewService(pipeline, embedder, retrieval.RetrieverOptions{}, nil)

	guard := security.NewMiddleware(nil, nil)
	qc := cache.NewMemoryCache(10, time.Minute)
	orch := chat.NewOrchestrator(guard, qc, corpus, retrieval.NewContextBuilder(""),
		&scriptedLLM{text: "Four 6mm holes."}, chat.Options{}, nil)

	init := ingest.NewInitializer()
	init.Start(func() error { return corpus.LoadOrBuild(context.Background()) })
	require.NoError(t, init.Wait(context.Background()))

	return New(&Config{
		ChatHandler:          handlers.NewChatHandler(orch, init, nil),
		HealthHandler:        handlers.NewHealthHandler(init, corpus, qc, guard),
		IngestHandler:        handlers.NewIngestHandler(corpus, nil),
		MetricsHandler:       http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
		CORSAllowedOrigins:   []string{"*"},
		RateLimitWindow:      time.Minute,
		RateLimitMaxRequests: maxRequests,
	})
}

func TestRouterRoutes(t *testing.T) {
	r := newTestRouter(t, 100)

	cases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodPost, "/api/chat", `{"message":"What is the PMP-25?"}`, http.StatusOK},
		{http.MethodPost, "/api/chat/stream", `{"message":"What is the PMP-25?"}`, http.StatusOK},
		{http.MethodPost, "/api/ingest", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/api/chat", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRouterCORSHeaders(t *testing.T) {
	r := newTestRouter(t, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://widget.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "https://widget.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterRateLimitsChatOnly(t *testing.T) {
	r := newTestRouter(t, 1)
	body := `{"message":"What is the PMP-25?"}`

	do := func(method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("X-Real-Ip", "1.1.1.1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/chat", body))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "/api/chat", body))
	// Health is outside the limited group.
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/health", ""))
}
