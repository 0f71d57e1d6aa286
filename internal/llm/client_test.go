package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves the OpenAI wire format so the real client code is
// exercised end to end.
func fakeProvider(t *testing.T, handler http.HandlerFunc) *DeepSeekClient {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewDeepSeekClient("test-key", server.URL+"/v1", Options{Model: "deepseek-chat"}, nil)
}

func TestCompleteReturnsTextAndUsage(t *testing.T) {
	client := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deepseek-chat", req["model"])
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"choices": [{"message": {"role": "assistant", "content": "The bracket uses four screws."}}],
			"usage": {"total_tokens": 42}
		}`)
	})

	got, err := client.Complete(context.Background(), "You answer from documentation.", "How many screws?")
	require.NoError(t, err)
	assert.Equal(t, "The bracket uses four screws.", got.Text)
	assert.Equal(t, 42, got.TokensUsed)
}

func TestCompleteEmptyChoices(t *testing.T) {
	client := fakeProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices": []}`)
	})

	_, err := client.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleteProviderError(t *testing.T) {
	client := fakeProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	})

	_, err := client.Complete(context.Background(), "s", "u")
	assert.ErrorContains(t, err, "completion failed")
}

func TestStreamYieldsDeltas(t *testing.T) {
	client := fakeProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"The ", "", "answer."}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := client.Stream(context.Background(), "s", "u")
	require.NoError(t, err)
	defer stream.Close()

	var got []string
	for {
		delta, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, delta)
	}
	// Empty deltas are skipped.
	assert.Equal(t, []string{"The ", "answer."}, got)
}

func TestStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	client := fakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"partial\"}}]}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.Stream(ctx, "s", "u")
	require.NoError(t, err)
	defer stream.Close()

	delta, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "partial", delta)

	cancel()
	_, err = stream.Recv()
	assert.Error(t, err)
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}
	opts.withDefaults()
	assert.Equal(t, "deepseek-chat", opts.Model)
	assert.Equal(t, 0.3, opts.Temperature)
	assert.Equal(t, 1024, opts.MaxTokens)
}
