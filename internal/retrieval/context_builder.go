package retrieval

import (
	"fmt"
	"strings"
)

// maxSourceRefs caps the deduplicated source list sent to the client.
const maxSourceRefs = 4

// sectionPreviewLen is how much of a chunk the source card shows.
const sectionPreviewLen = 120

// ContextBuilder formats search results into the LLM context block and
// the client-facing source list.
type ContextBuilder struct {
	baseURL string
}

// NewContextBuilder creates a builder. baseURL prefixes source links and
// may be empty.
func NewContextBuilder(baseURL string) *ContextBuilder {
	return &ContextBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// BuildContext renders numbered source blocks for the LLM prompt. An
// empty result list produces an empty string so the prompt can instruct
// the model to decline.
func (b *ContextBuilder) BuildContext(results []SearchResult, maxChunks int) string {
	if maxChunks > 0 && len(results) > maxChunks {
		results = results[:maxChunks]
	}
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, r := range results {
		meta := r.Document.Metadata
		fmt.Fprintf(&sb, "[Source %d: %s/%s (%s)]\n%s\n\n",
			i+1, meta.Category, meta.Source, meta.Type, strings.TrimSpace(r.Document.Text))
	}
	return strings.TrimSpace(sb.String())
}

// BuildSourceRefs returns a deduplicated source list for the client,
// keeping the highest-scoring chunk per source file.
func (b *ContextBuilder) BuildSourceRefs(results []SearchResult) []SourceRef {
	seen := make(map[string]struct{})
	var refs []SourceRef
	for _, r := range results {
		meta := r.Document.Metadata
		if _, ok := seen[meta.Source]; ok {
			continue
		}
		seen[meta.Source] = struct{}{}
		refs = append(refs, SourceRef{
			Filename: meta.Source,
			Category: meta.Category,
			Section:  sectionPreview(r.Document.Text),
			URL:      b.sourceURL(meta),
			Score:    r.Score,
		})
		if len(refs) == maxSourceRefs {
			break
		}
	}
	return refs
}

func (b *ContextBuilder) sourceURL(meta DocumentMetadata) string {
	if b.baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", b.baseURL, meta.Category, meta.Source)
}

func sectionPreview(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= sectionPreviewLen {
		return text
	}
	return string(runes[:sectionPreviewLen])
}
