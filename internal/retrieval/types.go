package retrieval

// DocumentMetadata carries provenance for a chunk.
type DocumentMetadata struct {
	Source      string `json:"source"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
}

// Document is one indexed chunk of the corpus. Immutable after ingestion.
type Document struct {
	ID       string           `json:"id"`
	Text     string           `json:"text"`
	Metadata DocumentMetadata `json:"metadata"`
}

// SearchResult is a ranked hit produced per query.
type SearchResult struct {
	Document    Document
	Score       float64
	VectorScore float64
}

// SourceRef is the client-facing reference for a cited document.
type SourceRef struct {
	Filename string  `json:"filename"`
	Category string  `json:"category"`
	Section  string  `json:"section"`
	URL      string  `json:"url"`
	Score    float64 `json:"score"`
}
