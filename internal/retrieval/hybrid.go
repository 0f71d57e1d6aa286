package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/docsentry/docsentry/pkg/logging"
)

// rrfK is the Reciprocal Rank Fusion smoothing constant.
const rrfK = 60

// fusedFloor keeps documents that ranked well in both lists even when
// their raw vector similarity falls under the threshold.
const fusedFloor = 0.005

// RetrieverOptions tune the hybrid search.
type RetrieverOptions struct {
	TopK               int
	RelevanceThreshold float64
	VectorWeight       float64
	LexicalWeight      float64
}

func (o *RetrieverOptions) withDefaults() {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.RelevanceThreshold == 0 {
		o.RelevanceThreshold = 0.3
	}
	if o.VectorWeight == 0 && o.LexicalWeight == 0 {
		o.VectorWeight = 0.7
		o.LexicalWeight = 0.3
	}
}

// HybridRetriever fuses vector and lexical rankings with RRF.
type HybridRetriever struct {
	embedder Embedder
	vectors  *VectorIndex
	lexical  *LexicalIndex
	opts     RetrieverOptions
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewHybridRetriever wires the two indices behind one query interface.
func NewHybridRetriever(embedder Embedder, vectors *VectorIndex, lexical *LexicalIndex, opts RetrieverOptions, logger *logging.Logger) *HybridRetriever {
	if embedder == nil {
		panic("retrieval: embedder cannot be nil")
	}
	if vectors == nil || lexical == nil {
		panic("retrieval: indices cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	opts.withDefaults()
	return &HybridRetriever{
		embedder: embedder,
		vectors:  vectors,
		lexical:  lexical,
		opts:     opts,
		logger:   logger,
		tracer:   otel.Tracer("docsentry.internal.retrieval"),
	}
}

// Search runs both phases, fuses the rankings, applies the relevance gate,
// and returns the top-K results by fused score.
func (r *HybridRetriever) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	ctx, span := r.tracer.Start(ctx, "retrieval.hybrid_search")
	defer span.End()

	if topK <= 0 {
		topK = r.opts.TopK
	}
	// Both phases over-fetch so fusion has enough candidates.
	fetch := 2 * topK

	var vectorHits []vectorHit
	var lexicalHits []lexicalHit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		queryVec, err := r.embedder.Embed(gctx, query)
		if err != nil {
			return fmt.Errorf("retrieval: query embedding failed: %w", err)
		}
		vectorHits, err = r.vectors.Search(queryVec, fetch)
		return err
	})
	g.Go(func() error {
		lexicalHits = r.lexical.Search(query, fetch)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type fused struct {
		position    int
		score       float64
		vectorScore float64
	}
	candidates := make(map[int]*fused)
	get := func(pos int) *fused {
		if c, ok := candidates[pos]; ok {
			return c
		}
		c := &fused{position: pos}
		candidates[pos] = c
		return c
	}

	for rank, hit := range vectorHits {
		c := get(hit.Position)
		c.score += r.opts.VectorWeight / float64(rrfK+rank+1)
		c.vectorScore = hit.Score
	}
	for rank, hit := range lexicalHits {
		get(hit.Position).score += r.opts.LexicalWeight / float64(rrfK+rank+1)
	}

	kept := make([]*fused, 0, len(candidates))
	for _, c := range candidates {
		if c.vectorScore < r.opts.RelevanceThreshold && c.score <= fusedFloor {
			continue
		}
		kept = append(kept, c)
	}

	// Order: fused score, then vector score, then stable corpus order.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		if kept[i].vectorScore != kept[j].vectorScore {
			return kept[i].vectorScore > kept[j].vectorScore
		}
		return kept[i].position < kept[j].position
	})
	if len(kept) > topK {
		kept = kept[:topK]
	}

	results := make([]SearchResult, len(kept))
	for i, c := range kept {
		results[i] = SearchResult{
			Document:    r.vectors.DocumentAt(c.position),
			Score:       c.score,
			VectorScore: c.vectorScore,
		}
	}

	r.logger.Debug("hybrid search",
		"query_len", len(query),
		"vector_hits", len(vectorHits),
		"lexical_hits", len(lexicalHits),
		"results", len(results),
	)
	return results, nil
}
