package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var tokenRe = regexp.MustCompile(`[a-z0-9]+(?:-[a-z0-9]+)*`)

// LexicalIndex scores documents with TF-IDF over the same corpus the
// vector index holds. Positions are shared between the two indices.
type LexicalIndex struct {
	mu        sync.RWMutex
	docTokens []map[string]int // position -> term frequencies
	docLens   []int
	docFreq   map[string]int // term -> number of documents containing it
}

// NewLexicalIndex creates an empty TF-IDF index.
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{docFreq: make(map[string]int)}
}

// Add indexes the documents in corpus order.
func (idx *LexicalIndex) Add(docs []Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, doc := range docs {
		tokens := tokenize(doc.Text)
		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		for term := range freq {
			idx.docFreq[term]++
		}
		idx.docTokens = append(idx.docTokens, freq)
		idx.docLens = append(idx.docLens, len(tokens))
	}
}

// Size returns the number of indexed documents.
func (idx *LexicalIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docTokens)
}

// lexicalHit pairs a corpus position with its TF-IDF score.
type lexicalHit struct {
	Position int
	Score    float64
}

// Search returns the top-K documents by summed TF-IDF over query terms.
// Documents with a zero score are not returned.
func (idx *LexicalIndex) Search(query string, topK int) []lexicalHit {
	if topK <= 0 {
		topK = 5
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	total := len(idx.docTokens)
	if total == 0 {
		return nil
	}

	var hits []lexicalHit
	for pos, freq := range idx.docTokens {
		score := 0.0
		for _, term := range terms {
			tf := freq[term]
			if tf == 0 {
				continue
			}
			df := idx.docFreq[term]
			idf := math.Log(float64(total+1) / float64(df+1))
			score += (float64(tf) / float64(idx.docLens[pos])) * idf
		}
		if score > 0 {
			hits = append(hits, lexicalHit{Position: pos, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// tokenize lowercases and splits text into alphanumeric terms, keeping
// hyphenated model numbers (pmp-25) intact.
func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}
