package usecase_test

import (
	"context"
	"testing"
	"time"

	"agent-orchestrator/internal/domain"
	"agent-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func putHandle(registry *usecase.SessionRegistry, sessionID string, dimension int) *domain.IndexHandle {
	handle := &domain.IndexHandle{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Dimension:  dimension,
		ChunkCount: 3,
		CreatedAt:  time.Now(),
	}
	registry.Put(handle)
	return handle
}

func TestRetrieveContext_Execute_Success(t *testing.T) {
	registry := usecase.NewSessionRegistry()
	encoder := new(MockVectorEncoder)
	index := new(MockVectorIndex)
	uc := usecase.NewRetrieveContextUsecase(registry, encoder, index, 5, testLogger())

	handle := putHandle(registry, "sess-1", 3)
	queryVec := []float32{0.1, 0.2, 0.3}

	encoder.On("Encode", mock.Anything, []string{"what does the document say"}).
		Return([][]float32{queryVec}, nil)
	index.On("Search", mock.Anything, "sess-1", queryVec, 2).Return([]domain.VectorMatch{
		{ID: uuid.New(), Ordinal: 1, Content: "second best", Score: 0.71},
		{ID: uuid.New(), Ordinal: 0, Content: "best match", Score: 0.94},
	}, nil)

	out, err := uc.Execute(context.Background(), usecase.RetrieveContextInput{
		SessionID: "sess-1",
		Query:     "what does the document say",
		TopK:      2,
	})

	require.NoError(t, err)
	assert.Equal(t, handle.ID, out.HandleID)
	require.Len(t, out.Contexts, 2)
	assert.Equal(t, "best match", out.Contexts[0].ChunkText)
	assert.Equal(t, float32(0.94), out.Contexts[0].Score)
	assert.GreaterOrEqual(t, out.Contexts[0].Score, out.Contexts[1].Score)
}

func TestRetrieveContext_Execute_NoIndex(t *testing.T) {
	registry := usecase.NewSessionRegistry()
	encoder := new(MockVectorEncoder)
	index := new(MockVectorIndex)
	uc := usecase.NewRetrieveContextUsecase(registry, encoder, index, 5, testLogger())

	_, err := uc.Execute(context.Background(), usecase.RetrieveContextInput{
		SessionID: "unknown",
		Query:     "anything",
	})

	assert.ErrorIs(t, err, domain.ErrNoIndex)
	encoder.AssertNotCalled(t, "Encode", mock.Anything, mock.Anything)
}

func TestRetrieveContext_Execute_DimensionMismatch(t *testing.T) {
	registry := usecase.NewSessionRegistry()
	encoder := new(MockVectorEncoder)
	index := new(MockVectorIndex)
	uc := usecase.NewRetrieveContextUsecase(registry, encoder, index, 5, testLogger())

	putHandle(registry, "sess-1", 3)

	// Encoder output dimension differs from the one the index was built with.
	encoder.On("Encode", mock.Anything, mock.Anything).
		Return([][]float32{{0.1, 0.2}}, nil)

	_, err := uc.Execute(context.Background(), usecase.RetrieveContextInput{
		SessionID: "sess-1",
		Query:     "anything",
	})

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	index.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetrieveContext_Execute_TruncatesToK(t *testing.T) {
	registry := usecase.NewSessionRegistry()
	encoder := new(MockVectorEncoder)
	index := new(MockVectorIndex)
	uc := usecase.NewRetrieveContextUsecase(registry, encoder, index, 5, testLogger())

	putHandle(registry, "sess-1", 1)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.9}}, nil)

	// Backend misbehaves: returns more hits than requested, unordered.
	index.On("Search", mock.Anything, "sess-1", mock.Anything, 2).Return([]domain.VectorMatch{
		{ID: uuid.New(), Content: "low", Score: 0.10},
		{ID: uuid.New(), Content: "high", Score: 0.90},
		{ID: uuid.New(), Content: "mid", Score: 0.50},
	}, nil)

	out, err := uc.Execute(context.Background(), usecase.RetrieveContextInput{
		SessionID: "sess-1",
		Query:     "anything",
		TopK:      2,
	})

	require.NoError(t, err)
	require.Len(t, out.Contexts, 2)
	assert.Equal(t, "high", out.Contexts[0].ChunkText)
	assert.Equal(t, "mid", out.Contexts[1].ChunkText)
}

func TestRetrieveContext_Execute_FewerThanK(t *testing.T) {
	registry := usecase.NewSessionRegistry()
	encoder := new(MockVectorEncoder)
	index := new(MockVectorIndex)
	uc := usecase.NewRetrieveContextUsecase(registry, encoder, index, 5, testLogger())

	putHandle(registry, "sess-1", 1)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.9}}, nil)
	index.On("Search", mock.Anything, "sess-1", mock.Anything, 10).Return([]domain.VectorMatch{
		{ID: uuid.New(), Content: "only one", Score: 0.42},
	}, nil)

	out, err := uc.Execute(context.Background(), usecase.RetrieveContextInput{
		SessionID: "sess-1",
		Query:     "anything",
		TopK:      10,
	})

	require.NoError(t, err)
	assert.Len(t, out.Contexts, 1)
}
