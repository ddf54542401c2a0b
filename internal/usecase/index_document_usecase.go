package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agent-orchestrator/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// embedBatchSize bounds how many chunk texts go to the encoder in one call.
const embedBatchSize = 16

// IndexDocumentUsecase builds (or rebuilds) the searchable index for one
// session's document.
type IndexDocumentUsecase interface {
	// Index chunks the document, embeds the chunks, and atomically replaces
	// the session's collection. Re-indexing unchanged content is a no-op and
	// returns the existing handle.
	Index(ctx context.Context, sessionID, documentText string) (*domain.IndexHandle, error)
	// Drop discards the session's index.
	Drop(ctx context.Context, sessionID string) error
}

type indexDocumentUsecase struct {
	registry *SessionRegistry
	hasher   domain.SourceHashPolicy
	chunker  domain.Chunker
	encoder  domain.VectorEncoder
	index    domain.VectorIndex
	logger   *slog.Logger
}

// NewIndexDocumentUsecase wires the chunker, encoder, and vector index into
// an indexing pipeline.
func NewIndexDocumentUsecase(
	registry *SessionRegistry,
	hasher domain.SourceHashPolicy,
	chunker domain.Chunker,
	encoder domain.VectorEncoder,
	index domain.VectorIndex,
	logger *slog.Logger,
) IndexDocumentUsecase {
	return &indexDocumentUsecase{
		registry: registry,
		hasher:   hasher,
		chunker:  chunker,
		encoder:  encoder,
		index:    index,
		logger:   logger,
	}
}

func (u *indexDocumentUsecase) Index(ctx context.Context, sessionID, documentText string) (*domain.IndexHandle, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	// Single writer per session: concurrent re-index requests for the same
	// session run one after another. Retrieval does not take this lock.
	lock := u.registry.IndexLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sourceHash := u.hasher.Compute(documentText)
	if existing := u.registry.Get(sessionID); existing != nil && existing.SourceHash == sourceHash {
		u.logger.Info("index_unchanged",
			slog.String("session_id", sessionID),
			slog.String("source_hash", sourceHash))
		return existing, nil
	}

	chunks, err := u.chunker.Chunk(documentText)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	embeddings, err := u.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(chunks) {
		return nil, domain.NewUpstreamError("embedder",
			fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings)))
	}

	dimension := len(embeddings[0])
	points := make([]domain.VectorPoint, len(chunks))
	for i, c := range chunks {
		if len(embeddings[i]) != dimension {
			return nil, fmt.Errorf("chunk %d: %w", c.Ordinal, domain.ErrDimensionMismatch)
		}
		points[i] = domain.VectorPoint{
			ID:      uuid.New(),
			Vector:  embeddings[i],
			Ordinal: c.Ordinal,
			Content: c.Content,
			Hash:    c.Hash,
		}
	}

	if err := u.index.Replace(ctx, sessionID, dimension, points); err != nil {
		return nil, domain.NewUpstreamError("vector index", err)
	}

	handle := &domain.IndexHandle{
		ID:              uuid.New(),
		SessionID:       sessionID,
		Dimension:       dimension,
		ChunkCount:      len(chunks),
		SourceHash:      sourceHash,
		ChunkerVersion:  string(u.chunker.Version()),
		EmbedderVersion: u.encoder.Version(),
		CreatedAt:       time.Now(),
	}
	u.registry.Put(handle)

	u.logger.Info("index_built",
		slog.String("session_id", sessionID),
		slog.String("handle_id", handle.ID.String()),
		slog.Int("chunks", handle.ChunkCount),
		slog.Int("dimension", dimension),
		slog.Duration("elapsed", time.Since(start)))

	return handle, nil
}

// embedChunks encodes chunk contents in bounded batches. Batches run
// concurrently; results land at fixed offsets so output order matches chunk
// order.
func (u *indexDocumentUsecase) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	embeddings := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for offset := 0; offset < len(chunks); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		offset, end := offset, end

		g.Go(func() error {
			texts := make([]string, 0, end-offset)
			for _, c := range chunks[offset:end] {
				texts = append(texts, c.Content)
			}

			batch, err := u.encoder.Encode(gctx, texts)
			if err != nil {
				return domain.NewUpstreamError("embedder", err)
			}
			if len(batch) != len(texts) {
				return domain.NewUpstreamError("embedder",
					fmt.Errorf("expected %d embeddings, got %d", len(texts), len(batch)))
			}
			copy(embeddings[offset:end], batch)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (u *indexDocumentUsecase) Drop(ctx context.Context, sessionID string) error {
	lock := u.registry.IndexLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := u.index.Drop(ctx, sessionID); err != nil {
		return domain.NewUpstreamError("vector index", err)
	}
	u.registry.Delete(sessionID)

	u.logger.Info("index_dropped", slog.String("session_id", sessionID))
	return nil
}
