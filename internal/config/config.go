package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string

	// LLM provider (OpenAI-compatible endpoint)
	DeepSeekAPIKey  string
	DeepSeekModel   string
	DeepSeekBaseURL string
	LLMTemperature  float64
	LLMMaxTokens    int
	EmbeddingModel  string

	// Retrieval
	MaxContextTokens   int
	ChunkSize          int
	ChunkOverlap       int
	TopK               int
	RelevanceThreshold float64

	// Ingestion
	DocsRoot         string
	IndexSnapshotDir string
	SourceBaseURL    string

	// Rate limiting
	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	// Query cache
	CacheMaxSize int
	CacheTTL     time.Duration
	RedisAddr    string
	RedisPass    string

	// Streaming
	StreamTimeout time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "3000"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "*")),

		DeepSeekAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		DeepSeekBaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		LLMTemperature:  getEnvAsFloat("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:    getEnvAsInt("LLM_MAX_TOKENS", 1024),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		MaxContextTokens:   getEnvAsInt("MAX_CONTEXT_TOKENS", 3000),
		ChunkSize:          getEnvAsInt("CHUNK_SIZE", 512),
		ChunkOverlap:       getEnvAsInt("CHUNK_OVERLAP", 50),
		TopK:               getEnvAsInt("TOP_K", 5),
		RelevanceThreshold: getEnvAsFloat("RELEVANCE_THRESHOLD", 0.3),

		DocsRoot:         getEnv("DOCS_ROOT", "./docs"),
		IndexSnapshotDir: getEnv("INDEX_SNAPSHOT_DIR", "./data/index"),
		SourceBaseURL:    getEnv("SOURCE_BASE_URL", ""),

		RateLimitWindow:      getEnvAsMillis("RATE_LIMIT_WINDOW_MS", 60_000),
		RateLimitMaxRequests: getEnvAsInt("RATE_LIMIT_MAX_REQUESTS", 20),

		CacheMaxSize: getEnvAsInt("CACHE_MAX_SIZE", 100),
		CacheTTL:     getEnvAsMillis("CACHE_TTL_MS", 3_600_000),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisPass:    getEnv("REDIS_PASSWORD", ""),

		StreamTimeout: getEnvAsMillis("STREAM_TIMEOUT_MS", 60_000),
	}
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsMillis reads an integer millisecond value into a Duration.
func getEnvAsMillis(key string, defaultValue int64) time.Duration {
	if value, err := strconv.ParseInt(getEnv(key, ""), 10, 64); err == nil {
		return time.Duration(value) * time.Millisecond
	}
	return time.Duration(defaultValue) * time.Millisecond
}
