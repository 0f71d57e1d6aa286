package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/docsentry/docsentry/pkg/logging"
)

var llmTracer = otel.Tracer("docsentry.internal.llm")

// ErrEmptyCompletion is returned when the provider answers with no choices.
var ErrEmptyCompletion = errors.New("llm: provider returned no choices")

// Completion is a finished non-streaming answer.
type Completion struct {
	Text       string
	TokensUsed int
}

// Stream yields answer text incrementally. Recv returns io.EOF when the
// provider finishes the stream.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Client is the chat completion surface the orchestrator depends on.
type Client interface {
	Complete(ctx context.Context, system, user string) (*Completion, error)
	Stream(ctx context.Context, system, user string) (Stream, error)
}

// Options configure the provider call.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func (o *Options) withDefaults() {
	if o.Model == "" {
		o.Model = "deepseek-chat"
	}
	if o.Temperature <= 0 {
		o.Temperature = 0.3
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1024
	}
}

// DeepSeekClient talks to an OpenAI-compatible chat endpoint. DeepSeek's
// API is wire-compatible, so the provider is just a base URL away.
type DeepSeekClient struct {
	client *openai.Client
	opts   Options
	logger *logging.Logger
}

// NewDeepSeekClient creates a client for the given endpoint.
func NewDeepSeekClient(apiKey, baseURL string, opts Options, logger *logging.Logger) *DeepSeekClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	opts.withDefaults()
	return &DeepSeekClient{
		client: openai.NewClientWithConfig(cfg),
		opts:   opts,
		logger: logger,
	}
}

func (c *DeepSeekClient) request(system, user string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: float32(c.opts.Temperature),
		MaxTokens:   c.opts.MaxTokens,
		Stream:      stream,
	}
}

// Complete runs a blocking chat completion.
func (c *DeepSeekClient) Complete(ctx context.Context, system, user string) (*Completion, error) {
	ctx, span := llmTracer.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.opts.Model))

	resp, err := c.client.CreateChatCompletion(ctx, c.request(system, user, false))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("llm: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	span.SetAttributes(attribute.Int("llm.total_tokens", resp.Usage.TotalTokens))
	return &Completion{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// Stream opens a streaming chat completion. The caller must Close the
// returned stream; cancelling ctx aborts the read.
func (c *DeepSeekClient) Stream(ctx context.Context, system, user string) (Stream, error) {
	ctx, span := llmTracer.Start(ctx, "llm.stream_open")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.opts.Model))

	inner, err := c.client.CreateChatCompletionStream(ctx, c.request(system, user, true))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("llm: stream open failed: %w", err)
	}
	return &openaiStream{inner: inner}, nil
}

type openaiStream struct {
	inner *openai.ChatCompletionStream
}

// Recv returns the next non-empty content delta.
func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openaiStream) Close() error {
	return s.inner.Close()
}
