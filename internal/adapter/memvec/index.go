// Package memvec provides an in-process vector index backed by brute-force
// cosine similarity. It is the default backend when no external store is
// configured, and the reference implementation of the atomic-replace
// contract.
package memvec

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"agent-orchestrator/internal/domain"
)

// collection is an immutable snapshot of one session's points. Replace
// builds a fresh collection and swaps the map entry; searches that already
// hold a snapshot keep reading it untouched.
type collection struct {
	dimension int
	points    []domain.VectorPoint
}

// Index is an in-memory domain.VectorIndex. Safe for concurrent use.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{collections: make(map[string]*collection)}
}

var _ domain.VectorIndex = (*Index)(nil)

// Replace swaps the session's collection for the given points. The swap is
// a single map-entry assignment under the write lock, so a concurrent Search
// sees either the old snapshot or the new one in full.
func (x *Index) Replace(ctx context.Context, sessionID string, dimension int, points []domain.VectorPoint) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	copied := make([]domain.VectorPoint, len(points))
	copy(copied, points)
	for _, p := range copied {
		if len(p.Vector) != dimension {
			return fmt.Errorf("point %s has dimension %d, collection expects %d", p.ID, len(p.Vector), dimension)
		}
	}

	next := &collection{dimension: dimension, points: copied}

	x.mu.Lock()
	x.collections[sessionID] = next
	x.mu.Unlock()
	return nil
}

// Search returns up to k points ordered by descending cosine similarity.
func (x *Index) Search(ctx context.Context, sessionID string, vector []float32, k int) ([]domain.VectorMatch, error) {
	x.mu.RLock()
	coll := x.collections[sessionID]
	x.mu.RUnlock()

	if coll == nil {
		return nil, fmt.Errorf("no collection for session %q", sessionID)
	}
	if len(vector) != coll.dimension {
		return nil, fmt.Errorf("query has dimension %d, collection expects %d", len(vector), coll.dimension)
	}
	if k <= 0 {
		return nil, nil
	}

	matches := make([]domain.VectorMatch, 0, len(coll.points))
	for _, p := range coll.points {
		matches = append(matches, domain.VectorMatch{
			ID:      p.ID,
			Ordinal: p.Ordinal,
			Content: p.Content,
			Hash:    p.Hash,
			Score:   cosineSimilarity(vector, p.Vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Drop discards the session's collection.
func (x *Index) Drop(ctx context.Context, sessionID string) error {
	x.mu.Lock()
	delete(x.collections, sessionID)
	x.mu.Unlock()
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
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
