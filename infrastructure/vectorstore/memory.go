package vectorstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ahrav/go-tactician/internal/ports"
)

// MemoryStore is an in-process ports.VectorStore. Relevance is scored
// by term overlap between the query and the document text, which is
// crude but deterministic, making it suitable for tests and for running
// the service without a Chroma deployment.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]ports.Document // collection -> id -> doc
}

var _ ports.VectorStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]ports.Document)}
}

// Upsert implements ports.VectorStore. Repeated IDs replace the prior
// document, matching the idempotence contract of the real store.
func (s *MemoryStore) Upsert(_ context.Context, collection string, docs []ports.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]ports.Document)
		s.collections[collection] = coll
	}
	for _, d := range docs {
		coll[d.ID] = d
	}
	return nil
}

// Query implements ports.VectorStore.
func (s *MemoryStore) Query(_ context.Context, collection, text string, k int, filter map[string]string) ([]ports.RetrievalResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryTerms := tokenize(text)

	type scored struct {
		doc   ports.Document
		score int
	}
	var candidates []scored
	for _, doc := range s.collections[collection] {
		if !matchesFilter(doc.Metadata, filter) {
			continue
		}
		candidates = append(candidates, scored{doc: doc, score: overlap(queryTerms, tokenize(doc.Text))})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].doc.ID < candidates[j].doc.ID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]ports.RetrievalResult, len(candidates))
	for i, c := range candidates {
		results[i] = ports.RetrievalResult{
			Document: c.doc.Text,
			Metadata: c.doc.Metadata,
			Distance: 1.0 / (1.0 + float64(c.score)),
		}
	}
	return results, nil
}

// Heartbeat implements ports.VectorStore; the in-memory store is always
// reachable.
func (s *MemoryStore) Heartbeat(context.Context) error { return nil }

// Count returns the number of documents in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func matchesFilter(metadata map[string]any, filter map[string]string) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if str, ok := got.(string); !ok || str != want {
			return false
		}
	}
	return true
}

func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		terms[strings.Trim(field, ".,:;()")] = struct{}{}
	}
	return terms
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for term := range a {
		if _, ok := b[term]; ok {
			n++
		}
	}
	return n
}
