package qdrant_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"agent-orchestrator/internal/adapter/qdrant"
	"agent-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQdrant struct {
	mu       sync.Mutex
	requests []string
}

func (f *fakeQdrant) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.mu.Unlock()

		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{},"status":"ok"}`))
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestIndex_Replace_CreatesUpsertsAndPromotes(t *testing.T) {
	fake := &fakeQdrant{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	idx := qdrant.NewIndex(server.URL, server.Client(), discardLogger())

	err := idx.Replace(context.Background(), "abc", 3, []domain.VectorPoint{
		{ID: uuid.New(), Vector: []float32{1, 2, 3}, Content: "chunk", Ordinal: 0, Hash: "h"},
	})
	require.NoError(t, err)

	require.Len(t, fake.requests, 3)
	assert.Contains(t, fake.requests[0], "PUT /collections/session-abc-")
	assert.Contains(t, fake.requests[1], "/points")
	assert.Equal(t, "POST /collections/aliases", fake.requests[2])
}

func TestIndex_Replace_SecondRunDropsPrevious(t *testing.T) {
	fake := &fakeQdrant{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	idx := qdrant.NewIndex(server.URL, server.Client(), discardLogger())
	ctx := context.Background()
	pts := []domain.VectorPoint{{ID: uuid.New(), Vector: []float32{1}, Content: "c"}}

	require.NoError(t, idx.Replace(ctx, "abc", 1, pts))
	require.NoError(t, idx.Replace(ctx, "abc", 1, pts))

	// Second replace: create, upsert, promote, then delete of the first
	// generation's collection.
	require.Len(t, fake.requests, 7)
	assert.Contains(t, fake.requests[6], "DELETE /collections/session-abc-")
}

func TestIndex_Search_ParsesMatches(t *testing.T) {
	chunkID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/session-abc/points/search", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(2), body["limit"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"result":[{"id":%q,"score":0.87,"payload":{"text":"chunk text","ordinal":4,"hash":"h4"}}]}`, chunkID)
	}))
	defer server.Close()

	idx := qdrant.NewIndex(server.URL, server.Client(), discardLogger())
	matches, err := idx.Search(context.Background(), "abc", []float32{0.1, 0.2}, 2)

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, chunkID, matches[0].ID)
	assert.Equal(t, "chunk text", matches[0].Content)
	assert.Equal(t, 4, matches[0].Ordinal)
	assert.Equal(t, float32(0.87), matches[0].Score)
}

func TestIndex_Search_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer server.Close()

	idx := qdrant.NewIndex(server.URL, server.Client(), discardLogger())
	_, err := idx.Search(context.Background(), "abc", []float32{0.1}, 2)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
