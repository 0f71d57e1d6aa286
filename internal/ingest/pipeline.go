package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/docsentry/docsentry/internal/retrieval"
	"github.com/docsentry/docsentry/pkg/logging"
)

var ingestTracer = otel.Tracer("docsentry.internal.ingest")

// embedBatchSize bounds the number of chunks per embedding request.
const embedBatchSize = 32

// embedConcurrency bounds in-flight embedding requests during a rebuild.
const embedConcurrency = 4

var textExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".csv":      true,
}

// Pipeline walks the documentation root, chunks and embeds every file,
// and produces freshly built indices plus a snapshot on disk.
type Pipeline struct {
	embedder    retrieval.Embedder
	chunker     *Chunker
	docsRoot    string
	snapshotDir string
	logger      *logging.Logger
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(embedder retrieval.Embedder, chunker *Chunker, docsRoot, snapshotDir string, logger *logging.Logger) *Pipeline {
	if embedder == nil {
		panic("ingest: embedder cannot be nil")
	}
	if chunker == nil {
		chunker = NewChunker(0, 0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		embedder:    embedder,
		chunker:     chunker,
		docsRoot:    docsRoot,
		snapshotDir: snapshotDir,
		logger:      logger,
	}
}

// Run rebuilds both indices from the documentation root. Unreadable
// files are logged and skipped; an empty corpus is not an error.
func (p *Pipeline) Run(ctx context.Context) (*retrieval.VectorIndex, *retrieval.LexicalIndex, error) {
	ctx, span := ingestTracer.Start(ctx, "ingest.run")
	defer span.End()

	docs := p.collectDocuments()
	span.SetAttributes(attribute.Int("ingest.documents", len(docs)))

	vectors, err := p.embedAll(ctx, docs)
	if err != nil {
		return nil, nil, err
	}

	vecIdx := retrieval.NewVectorIndex(p.embedder.Dimension())
	if err := vecIdx.Add(docs, vectors); err != nil {
		return nil, nil, fmt.Errorf("ingest: index build failed: %w", err)
	}
	lexIdx := retrieval.NewLexicalIndex()
	lexIdx.Add(docs)

	if p.snapshotDir != "" {
		if err := vecIdx.Save(p.snapshotDir); err != nil {
			// Serving can continue from memory; only persistence is lost.
			p.logger.Error("index snapshot failed", "error", err, "dir", p.snapshotDir)
		}
	}

	p.logger.Info("ingestion complete",
		"documents", len(docs),
		"dimension", p.embedder.Dimension(),
		"root", p.docsRoot,
	)
	return vecIdx, lexIdx, nil
}

// collectDocuments walks the root and chunks every supported file.
func (p *Pipeline) collectDocuments() []retrieval.Document {
	var docs []retrieval.Document

	err := filepath.WalkDir(p.docsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			p.logger.Error("ingest walk error", "error", err, "path", path)
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != p.docsRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			p.logger.Error("ingest read failed", "error", err, "path", path)
			return nil
		}
		text := strings.TrimSpace(string(raw))
		if text == "" {
			return nil
		}

		rel, err := filepath.Rel(p.docsRoot, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		rel = filepath.ToSlash(rel)

		chunks := p.chunker.Split(text)
		for i, chunk := range chunks {
			docs = append(docs, retrieval.Document{
				ID:   fmt.Sprintf("%s#%d", rel, i),
				Text: chunk,
				Metadata: retrieval.DocumentMetadata{
					Source:      filepath.Base(rel),
					Category:    categoryOf(rel),
					Type:        typeOf(rel),
					ChunkIndex:  i,
					TotalChunks: len(chunks),
				},
			})
		}
		return nil
	})
	if err != nil {
		p.logger.Error("ingest walk aborted", "error", err, "root", p.docsRoot)
	}
	return docs
}

// embedAll embeds documents in bounded parallel batches, preserving the
// document order in the output.
func (p *Pipeline) embedAll(ctx context.Context, docs []retrieval.Document) ([][]float32, error) {
	vectors := make([][]float32, len(docs))
	if len(docs) == 0 {
		return vectors, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for start := 0; start < len(docs); start += embedBatchSize {
		start := start
		end := start + embedBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = docs[i].Text
			}
			batch, err := p.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("ingest: embedding batch at %d failed: %w", start, err)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// categoryOf maps a relative path to its top-level folder.
func categoryOf(rel string) string {
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return "general"
}

// typeOf infers the document type from its location and extension.
func typeOf(rel string) string {
	if strings.HasSuffix(strings.ToLower(rel), ".csv") {
		return "table"
	}
	if categoryOf(rel) == "products" {
		return "product"
	}
	return "text"
}
