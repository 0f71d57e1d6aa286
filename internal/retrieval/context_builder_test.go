package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(id, text, source string, score float64) SearchResult {
	return SearchResult{Document: doc(id, text, source), Score: score}
}

func TestBuildContextNumbersSources(t *testing.T) {
	b := NewContextBuilder("")
	out := b.BuildContext([]SearchResult{
		result("a", "The bracket needs four screws.", "bracket.md", 0.9),
		result("b", "Torque to 2.5 Nm.", "torque.md", 0.5),
	}, 0)

	assert.Contains(t, out, "[Source 1: products/bracket.md (text)]")
	assert.Contains(t, out, "[Source 2: products/torque.md (text)]")
	assert.Contains(t, out, "The bracket needs four screws.")
	assert.True(t, strings.Index(out, "[Source 1") < strings.Index(out, "[Source 2"))
}

func TestBuildContextMaxChunks(t *testing.T) {
	b := NewContextBuilder("")
	out := b.BuildContext([]SearchResult{
		result("a", "first", "a.md", 0.9),
		result("b", "second", "b.md", 0.8),
		result("c", "third", "c.md", 0.7),
	}, 2)

	assert.Contains(t, out, "[Source 2")
	assert.NotContains(t, out, "[Source 3")
	assert.NotContains(t, out, "third")
}

func TestBuildContextEmpty(t *testing.T) {
	b := NewContextBuilder("")
	assert.Empty(t, b.BuildContext(nil, 0))
}

func TestBuildSourceRefsDedupAndCap(t *testing.T) {
	b := NewContextBuilder("https://docs.example.com/")
	refs := b.BuildSourceRefs([]SearchResult{
		result("a1", "chunk one of the manual", "manual.md", 0.9),
		result("a2", "chunk two of the manual", "manual.md", 0.8),
		result("b", "spec sheet", "spec.md", 0.7),
		result("c", "warranty terms", "warranty.md", 0.6),
		result("d", "care guide", "care.md", 0.5),
		result("e", "faq entries", "faq.md", 0.4),
	})

	require.Len(t, refs, maxSourceRefs)
	assert.Equal(t, "manual.md", refs[0].Filename)
	assert.Equal(t, 0.9, refs[0].Score)
	assert.Equal(t, "https://docs.example.com/products/manual.md", refs[0].URL)
	assert.Equal(t, "spec.md", refs[1].Filename)
	assert.Equal(t, "care.md", refs[3].Filename)
}

func TestBuildSourceRefsSectionPreview(t *testing.T) {
	long := strings.Repeat("x", 200)
	b := NewContextBuilder("")
	refs := b.BuildSourceRefs([]SearchResult{result("a", long, "a.md", 0.9)})

	require.Len(t, refs, 1)
	assert.Len(t, []rune(refs[0].Section), sectionPreviewLen)
	assert.Empty(t, refs[0].URL)
}
