package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/docsentry/docsentry/internal/api/router"
	"github.com/docsentry/docsentry/internal/cache"
	"github.com/docsentry/docsentry/internal/chat"
	"github.com/docsentry/docsentry/internal/config"
	"github.com/docsentry/docsentry/internal/http/handlers"
	"github.com/docsentry/docsentry/internal/ingest"
	"github.com/docsentry/docsentry/internal/llm"
	"github.com/docsentry/docsentry/internal/observability/metrics"
	"github.com/docsentry/docsentry/internal/retrieval"
	"github.com/docsentry/docsentry/internal/security"
	"github.com/docsentry/docsentry/pkg/logging"
)

func main() {
	// Load .env in development; the file is optional.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting docsentry API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"docs_root", cfg.DocsRoot,
	)

	// Embeddings and chat share one OpenAI-compatible endpoint.
	providerCfg := openai.DefaultConfig(cfg.DeepSeekAPIKey)
	if cfg.DeepSeekBaseURL != "" {
		providerCfg.BaseURL = cfg.DeepSeekBaseURL
	}
	embedder := retrieval.NewOpenAIEmbedder(openai.NewClientWithConfig(providerCfg), cfg.EmbeddingModel, 0)

	chunker := ingest.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	pipeline := ingest.NewPipeline(embedder, chunker, cfg.DocsRoot, cfg.IndexSnapshotDir, logger)
	corpus := ingest.NewService(pipeline, embedder, retrieval.RetrieverOptions{
		TopK:               cfg.TopK,
		RelevanceThreshold: cfg.RelevanceThreshold,
	}, logger)

	securityMetrics := metrics.NewSecurityMetrics(nil)
	chatMetrics := metrics.NewChatMetrics(nil)
	guard := security.NewMiddleware(logger, securityMetrics)

	var queryCache cache.QueryCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
		})
		queryCache = cache.NewRedisCache(redisClient, cfg.CacheTTL, logger)
		logger.Info("query cache backed by redis", "addr", cfg.RedisAddr)
	} else {
		queryCache = cache.NewMemoryCache(cfg.CacheMaxSize, cfg.CacheTTL)
	}

	llmClient := llm.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekBaseURL, llm.Options{
		Model:       cfg.DeepSeekModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	}, logger)

	orch := chat.NewOrchestrator(guard, queryCache, corpus,
		retrieval.NewContextBuilder(cfg.SourceBaseURL), llmClient, chat.Options{
			TopK:          cfg.TopK,
			StreamTimeout: cfg.StreamTimeout,
			Observer:      chatMetrics,
		}, logger)

	// Chat endpoints answer 503 until the corpus is ready.
	init := ingest.NewInitializer()
	init.Start(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := corpus.LoadOrBuild(ctx); err != nil {
			logger.Error("corpus initialization failed", "error", err)
			return err
		}
		logger.Info("corpus ready", "documents", corpus.Documents())
		return nil
	})

	r := router.New(&router.Config{
		Logger:               logger,
		ChatHandler:          handlers.NewChatHandler(orch, init, logger),
		HealthHandler:        handlers.NewHealthHandler(init, corpus, queryCache, guard),
		IngestHandler:        handlers.NewIngestHandler(corpus, logger),
		MetricsHandler:       promhttp.Handler(),
		CORSAllowedOrigins:   cfg.AllowedOrigins,
		RateLimitWindow:      cfg.RateLimitWindow,
		RateLimitMaxRequests: cfg.RateLimitMaxRequests,
	})

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// SSE responses outlive any fixed write deadline; the stream
		// timeout is enforced per request by the orchestrator.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
