package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// VectorPoint is one embedded chunk as the vector store sees it.
type VectorPoint struct {
	ID      uuid.UUID
	Vector  []float32
	Ordinal int
	Content string
	Hash    string
}

// VectorMatch is one search hit, carrying the stored payload and the
// similarity score assigned by the store.
type VectorMatch struct {
	ID      uuid.UUID
	Ordinal int
	Content string
	Hash    string
	Score   float32
}

// VectorIndex owns the upsert/search contract against the vector store and
// isolates the rest of the system from store-specific details.
//
// Replace must be atomic with respect to Search: a search running
// concurrently with a Replace for the same session observes either the
// previous point set or the new one in full, never a mix. How that is
// achieved is up to the adapter (collection alias promotion, transactional
// swap, snapshot pointer).
type VectorIndex interface {
	// Replace atomically swaps the session's collection for the given points.
	Replace(ctx context.Context, sessionID string, dimension int, points []VectorPoint) error

	// Search returns up to k matches ordered by descending score.
	Search(ctx context.Context, sessionID string, vector []float32, k int) ([]VectorMatch, error)

	// Drop discards the session's collection. Dropping a session that was
	// never indexed is not an error.
	Drop(ctx context.Context, sessionID string) error
}

// IndexHandle identifies one logical collection of embedded chunks. A new
// handle is created per indexing run; re-indexing the same session replaces
// the handle rather than merging into it.
type IndexHandle struct {
	ID              uuid.UUID
	SessionID       string
	Dimension       int
	ChunkCount      int
	SourceHash      string
	ChunkerVersion  string
	EmbedderVersion string
	CreatedAt       time.Time
}
