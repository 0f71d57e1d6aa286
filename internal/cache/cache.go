package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/docsentry/docsentry/internal/retrieval"
)

// Entry is a cached answer with its source references.
type Entry struct {
	Response string                `json:"response"`
	Sources  []retrieval.SourceRef `json:"sources"`
	CachedAt time.Time             `json:"cachedAt"`
}

// Stats reports cache effectiveness for the health endpoint.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	MaxSize int     `json:"maxSize"`
	HitRate float64 `json:"hitRate"`
}

// QueryCache stores answers keyed by a normalized query fingerprint.
// Implementations are safe for concurrent use and fail open: a backend
// error reads as a miss and drops the write.
type QueryCache interface {
	Get(ctx context.Context, query string) (*Entry, bool)
	Set(ctx context.Context, query string, entry Entry)
	Stats() Stats
	Clear(ctx context.Context)
}

// Fingerprint derives the cache key: MD5 of the lowercased,
// whitespace-collapsed query.
func Fingerprint(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
