// Package retriever is the RAG layer in front of the oracle: it keeps a
// similarity index of past analyses and augments new assessments with the
// closest matches.
package retriever

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Document is one indexed analysis.
type Document struct {
	ID          int64  `json:"id"`
	Text        string `json:"-"`
	PatternName string `json:"pattern_name"`
	Status      string `json:"status"`
	Summary     string `json:"summary"`
}

// Match is a similarity hit.
type Match struct {
	Document
	Score float64 `json:"score"`
}

// Index is the similarity collaborator. The embedding/storage internals
// are opaque to the service: any implementation satisfying this interface
// (in-process lexical, remote vector store) plugs in.
type Index interface {
	// Add indexes a document. Re-adding an ID replaces the previous entry.
	Add(doc Document)

	// Query returns up to k documents most similar to text, best first.
	// Zero-similarity documents are not returned.
	Query(text string, k int) []Match

	// Count returns the number of indexed documents.
	Count() int
}

var wordPattern = regexp.MustCompile(`[a-z0-9@.\-_]+`)

// lexicalIndex is the default in-process implementation: token-set cosine
// similarity over lowercased payload terms. Good enough to surface
// near-duplicate payloads without an external embedding service.
type lexicalIndex struct {
	mu   sync.RWMutex
	docs map[int64]*indexedDoc
}

type indexedDoc struct {
	doc   Document
	terms map[string]struct{}
}

// NewLexicalIndex creates an empty in-process index.
func NewLexicalIndex() Index {
	return &lexicalIndex{docs: make(map[int64]*indexedDoc)}
}

func (ix *lexicalIndex) Add(doc Document) {
	terms := termSet(doc.Text)
	ix.mu.Lock()
	ix.docs[doc.ID] = &indexedDoc{doc: doc, terms: terms}
	ix.mu.Unlock()
}

func (ix *lexicalIndex) Query(text string, k int) []Match {
	queryTerms := termSet(text)
	if len(queryTerms) == 0 || k <= 0 {
		return nil
	}

	ix.mu.RLock()
	matches := make([]Match, 0, len(ix.docs))
	for _, entry := range ix.docs {
		score := cosine(queryTerms, entry.terms)
		if score > 0 {
			matches = append(matches, Match{Document: entry.doc, Score: score})
		}
	}
	ix.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID > matches[j].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func (ix *lexicalIndex) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) >= 2 {
			terms[w] = struct{}{}
		}
	}
	return terms
}

// cosine over binary term vectors: |A∩B| / sqrt(|A|*|B|).
func cosine(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	common := 0
	for t := range small {
		if _, ok := large[t]; ok {
			common++
		}
	}
	if common == 0 {
		return 0
	}
	return float64(common) / (math.Sqrt(float64(len(a))) * math.Sqrt(float64(len(b))))
}
