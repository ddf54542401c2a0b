package domain

import (
	"context"
)

// VectorEncoder defines the interface for generating embeddings.
// Encode is deterministic for identical text and encoder configuration, and
// returns one fixed-dimension vector per input text, in input order.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
