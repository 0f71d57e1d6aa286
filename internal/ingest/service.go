package ingest

import (
	"context"
	"errors"
	"os"
	"sync/atomic"

	"github.com/docsentry/docsentry/internal/retrieval"
	"github.com/docsentry/docsentry/pkg/logging"
)

// ErrNotReady is returned by Search before the first build completes.
var ErrNotReady = errors.New("ingest: corpus not ready")

type corpusState struct {
	vectors   *retrieval.VectorIndex
	lexical   *retrieval.LexicalIndex
	retriever *retrieval.HybridRetriever
}

// Service owns the serving corpus. Rebuilds swap the indices atomically:
// requests that started against the old corpus finish against it.
type Service struct {
	pipeline *Pipeline
	embedder retrieval.Embedder
	opts     retrieval.RetrieverOptions
	logger   *logging.Logger

	current atomic.Pointer[corpusState]
}

// NewService creates the corpus service. The corpus is empty until
// LoadOrBuild or Rebuild succeeds.
func NewService(pipeline *Pipeline, embedder retrieval.Embedder, opts retrieval.RetrieverOptions, logger *logging.Logger) *Service {
	if pipeline == nil || embedder == nil {
		panic("ingest: service dependencies cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		pipeline: pipeline,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
	}
}

// LoadOrBuild restores the snapshot when one exists, otherwise runs a
// full rebuild.
func (s *Service) LoadOrBuild(ctx context.Context) error {
	if dir := s.pipeline.snapshotDir; dir != "" {
		loaded, err := retrieval.LoadVectorIndex(dir)
		switch {
		case err == nil:
			lexical := retrieval.NewLexicalIndex()
			lexical.Add(loaded.Documents())
			s.swap(loaded, lexical)
			s.logger.Info("corpus restored from snapshot", "documents", loaded.Size(), "dir", dir)
			return nil
		case !errors.Is(err, os.ErrNotExist):
			s.logger.Error("snapshot load failed, rebuilding", "error", err, "dir", dir)
		}
	}

	_, err := s.Rebuild(ctx)
	return err
}

// Rebuild reruns the full pipeline and swaps the corpus in.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	vectors, lexical, err := s.pipeline.Run(ctx)
	if err != nil {
		return 0, err
	}
	s.swap(vectors, lexical)
	return vectors.Size(), nil
}

func (s *Service) swap(vectors *retrieval.VectorIndex, lexical *retrieval.LexicalIndex) {
	s.current.Store(&corpusState{
		vectors:   vectors,
		lexical:   lexical,
		retriever: retrieval.NewHybridRetriever(s.embedder, vectors, lexical, s.opts, s.logger),
	})
}

// Search queries the current corpus.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]retrieval.SearchResult, error) {
	state := s.current.Load()
	if state == nil {
		return nil, ErrNotReady
	}
	return state.retriever.Search(ctx, query, topK)
}

// Documents reports the size of the current corpus.
func (s *Service) Documents() int {
	state := s.current.Load()
	if state == nil {
		return 0
	}
	return state.vectors.Size()
}
