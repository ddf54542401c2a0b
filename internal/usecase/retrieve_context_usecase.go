package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"agent-orchestrator/internal/domain"

	"github.com/google/uuid"
)

// RetrieveContextInput defines the input parameters for RetrieveContext.
type RetrieveContextInput struct {
	SessionID string
	Query     string
	TopK      int
}

// RetrieveContextOutput defines the output for RetrieveContext.
type RetrieveContextOutput struct {
	HandleID uuid.UUID
	Contexts []ContextItem
}

// ContextItem represents a single retrieved chunk with its relevance score.
type ContextItem struct {
	ChunkID   uuid.UUID
	ChunkText string
	Ordinal   int
	Score     float32
}

// RetrieveContextUsecase defines the interface for retrieving context.
type RetrieveContextUsecase interface {
	Execute(ctx context.Context, input RetrieveContextInput) (*RetrieveContextOutput, error)
}

type retrieveContextUsecase struct {
	registry    *SessionRegistry
	encoder     domain.VectorEncoder
	index       domain.VectorIndex
	defaultTopK int
	logger      *slog.Logger
}

// NewRetrieveContextUsecase creates a new RetrieveContextUsecase.
func NewRetrieveContextUsecase(
	registry *SessionRegistry,
	encoder domain.VectorEncoder,
	index domain.VectorIndex,
	defaultTopK int,
	logger *slog.Logger,
) RetrieveContextUsecase {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &retrieveContextUsecase{
		registry:    registry,
		encoder:     encoder,
		index:       index,
		defaultTopK: defaultTopK,
		logger:      logger,
	}
}

func (u *retrieveContextUsecase) Execute(ctx context.Context, input RetrieveContextInput) (*RetrieveContextOutput, error) {
	if input.Query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	handle := u.registry.Get(input.SessionID)
	if handle == nil {
		return nil, domain.ErrNoIndex
	}

	k := input.TopK
	if k <= 0 {
		k = u.defaultTopK
	}

	embeddings, err := u.encoder.Encode(ctx, []string{input.Query})
	if err != nil {
		return nil, domain.NewUpstreamError("embedder", err)
	}
	if len(embeddings) != 1 {
		return nil, domain.NewUpstreamError("embedder",
			fmt.Errorf("expected 1 embedding, got %d", len(embeddings)))
	}

	queryVector := embeddings[0]
	if len(queryVector) != handle.Dimension {
		return nil, fmt.Errorf("query dimension %d, index dimension %d: %w",
			len(queryVector), handle.Dimension, domain.ErrDimensionMismatch)
	}

	matches, err := u.index.Search(ctx, input.SessionID, queryVector, k)
	if err != nil {
		return nil, domain.NewUpstreamError("vector index", err)
	}

	// Adapters return hits ranked by the store; enforce the ordering and the
	// k bound here so callers never depend on backend behavior.
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}

	contexts := make([]ContextItem, 0, len(matches))
	for _, m := range matches {
		contexts = append(contexts, ContextItem{
			ChunkID:   m.ID,
			ChunkText: m.Content,
			Ordinal:   m.Ordinal,
			Score:     m.Score,
		})
	}

	u.logger.Info("context_retrieved",
		slog.String("session_id", input.SessionID),
		slog.Int("requested_k", k),
		slog.Int("returned", len(contexts)))

	return &RetrieveContextOutput{HandleID: handle.ID, Contexts: contexts}, nil
}
