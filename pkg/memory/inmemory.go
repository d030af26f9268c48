// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/strata-ai/strata/pkg/errors"
)

// InMemoryStore is a brute-force in-process vector store. Scoring is exact
// cosine similarity and ties keep insertion order, which makes query results
// fully deterministic — the property the bank engine's idempotence guarantee
// rests on.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Point
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{collections: make(map[string][]Point)}
}

// EnsureCollection creates the collection if missing. Vector size is not
// enforced here; mixed sizes simply score zero against each other.
func (s *InMemoryStore) EnsureCollection(_ context.Context, name string, _ uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = nil
	}
	return nil
}

// Upsert appends points, replacing any point with a matching id in place so
// re-indexing identical content keeps its original position.
func (s *InMemoryStore) Upsert(_ context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.collections[collection]
	if !ok {
		return errors.Newf(errors.CodeNotFound, "collection %q does not exist", collection)
	}
	index := make(map[string]int, len(existing))
	for i, p := range existing {
		index[p.ID] = i
	}
	for _, p := range points {
		if i, ok := index[p.ID]; ok {
			existing[i] = p
			continue
		}
		existing = append(existing, p)
		index[p.ID] = len(existing) - 1
	}
	s.collections[collection] = existing
	return nil
}

// Search scans the collection and returns the top matches by cosine
// similarity, stable on ties.
func (s *InMemoryStore) Search(_ context.Context, collection string, vector []float32, limit int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	points, ok := s.collections[collection]
	if !ok {
		return nil, errors.Newf(errors.CodeNotFound, "collection %q does not exist", collection)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, SearchResult{Point: p, Score: cosine(vector, p.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DropCollection removes the collection.
func (s *InMemoryStore) DropCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// cosine returns the cosine similarity of two vectors, zero when either is
// empty, mismatched or degenerate.
func cosine(a, b []float32) float32 {
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
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ VectorStore = (*InMemoryStore)(nil)
