package retrieval

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// snapshotFile is the on-disk name of the index snapshot.
const snapshotFile = "index.json"

// ErrDimensionMismatch is returned when a vector does not match the
// index dimension.
var ErrDimensionMismatch = errors.New("retrieval: embedding dimension mismatch")

// VectorIndex holds (document, vector) pairs and answers brute-force
// cosine top-K queries. Vectors are expected L2-normalized. The index is
// written only during ingestion; reads during serving take the read lock.
type VectorIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	documents []Document
}

// NewVectorIndex creates an empty index for the given dimension.
func NewVectorIndex(dimension int) *VectorIndex {
	return &VectorIndex{dimension: dimension}
}

// Add appends documents with their embeddings, one vector per document.
func (idx *VectorIndex) Add(docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("retrieval: %d documents but %d vectors", len(docs), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != idx.dimension {
			return ErrDimensionMismatch
		}
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.documents = append(idx.documents, docs...)
	idx.vectors = append(idx.vectors, vectors...)
	return nil
}

// Size returns the number of indexed documents.
func (idx *VectorIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.documents)
}

// Documents returns the corpus in insertion order.
func (idx *VectorIndex) Documents() []Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]Document, len(idx.documents))
	copy(out, idx.documents)
	return out
}

// vectorHit pairs a corpus position with its similarity score.
type vectorHit struct {
	Position int
	Score    float64
}

// Search returns the top-K documents by cosine similarity against query.
func (idx *VectorIndex) Search(query []float32, topK int) ([]vectorHit, error) {
	if len(query) != idx.dimension {
		return nil, ErrDimensionMismatch
	}
	if topK <= 0 {
		topK = 5
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hits := make([]vectorHit, 0, len(idx.vectors))
	for i, v := range idx.vectors {
		hits = append(hits, vectorHit{Position: i, Score: cosineSimilarity(query, v)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// DocumentAt returns the document at a corpus position.
func (idx *VectorIndex) DocumentAt(position int) Document {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.documents[position]
}

// snapshot is the persisted JSON shape.
type snapshot struct {
	Dimension int         `json:"dimension"`
	Vectors   [][]float32 `json:"vectors"`
	Documents []Document  `json:"documents"`
}

// Save writes the index snapshot atomically (write-then-rename).
func (idx *VectorIndex) Save(dir string) error {
	idx.mu.RLock()
	snap := snapshot{
		Dimension: idx.dimension,
		Vectors:   idx.vectors,
		Documents: idx.documents,
	}
	data, err := json.Marshal(snap)
	idx.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("retrieval: failed to marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("retrieval: failed to create snapshot dir: %w", err)
	}
	tmp := filepath.Join(dir, snapshotFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("retrieval: failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, snapshotFile)); err != nil {
		return fmt.Errorf("retrieval: failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadVectorIndex reads a snapshot from dir. Returns os.ErrNotExist if no
// snapshot has been written yet.
func LoadVectorIndex(dir string) (*VectorIndex, error) {
	data, err := os.ReadFile(filepath.Join(dir, snapshotFile))
	if err != nil {
		return nil, err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("retrieval: corrupt snapshot: %w", err)
	}
	if len(snap.Vectors) != len(snap.Documents) {
		return nil, fmt.Errorf("retrieval: snapshot has %d vectors for %d documents",
			len(snap.Vectors), len(snap.Documents))
	}
	return &VectorIndex{
		dimension: snap.Dimension,
		vectors:   snap.Vectors,
		documents: snap.Documents,
	}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
