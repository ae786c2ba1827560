// Package rag indexes the office documents and answers "which office is this
// about" questions over them.
package rag

import (
	"math"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Document is one indexed snippet.
type Document struct {
	ID     string
	Text   string
	Vector []float32
}

// Match is a search hit.
type Match struct {
	Document
	Score float64
}

// Store is an in-memory vector store ranked by cosine similarity.
type Store struct {
	mu   sync.RWMutex
	docs []Document
	dims int
}

func NewStore() *Store {
	return &Store{}
}

// Add appends documents. All vectors in a store must share one dimension.
func (s *Store) Add(docs ...Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		if s.dims == 0 {
			s.dims = len(d.Vector)
		}
		if len(d.Vector) != s.dims {
			return errors.Errorf("document %s has %d dimensions, store has %d", d.ID, len(d.Vector), s.dims)
		}
		s.docs = append(s.docs, d)
	}
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Query returns the k documents most similar to vector, best first. Ties keep
// insertion order.
func (s *Store) Query(vector []float32, k int) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.docs) == 0 || len(vector) != s.dims {
		return nil
	}

	matches := make([]Match, 0, len(s.docs))
	for _, d := range s.docs {
		matches = append(matches, Match{Document: d, Score: Cosine(vector, d.Vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
