// Package qdrant implements the vector index contract against a Qdrant
// server's REST API.
//
// Atomic replace works through collection aliases: each Replace builds a
// fresh collection, then promotes the session alias to it in a single alias
// operation. Searches go through the alias, so a search concurrent with a
// re-index hits either the previous collection or the new one, never a
// half-filled one. The superseded collection is dropped afterwards.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"agent-orchestrator/internal/domain"

	"github.com/google/uuid"
)

// Index is a Qdrant-backed domain.VectorIndex.
type Index struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]string // session -> concrete collection name
}

// NewIndex constructs an index client for the given Qdrant endpoint.
func NewIndex(baseURL string, client *http.Client, logger *slog.Logger) *Index {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Index{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
		active:  make(map[string]string),
	}
}

var _ domain.VectorIndex = (*Index)(nil)

func aliasName(sessionID string) string {
	return "session-" + sessionID
}

type qdrantPoint struct {
	ID      string                 `json:"id"`
	Vector  []float32              `json:"vector"`
	Payload map[string]interface{} `json:"payload"`
}

func (x *Index) Replace(ctx context.Context, sessionID string, dimension int, points []domain.VectorPoint) error {
	collection := fmt.Sprintf("%s-%s", aliasName(sessionID), uuid.NewString()[:8])

	createBody := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := x.do(ctx, http.MethodPut, "/collections/"+collection, createBody, nil); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	qPoints := make([]qdrantPoint, len(points))
	for i, p := range points {
		qPoints[i] = qdrantPoint{
			ID:     p.ID.String(),
			Vector: p.Vector,
			Payload: map[string]interface{}{
				"text":    p.Content,
				"ordinal": p.Ordinal,
				"hash":    p.Hash,
			},
		}
	}
	upsertPath := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	if err := x.do(ctx, http.MethodPut, upsertPath, map[string]interface{}{"points": qPoints}, nil); err != nil {
		// Leave nothing half-built behind.
		_ = x.do(ctx, http.MethodDelete, "/collections/"+collection, nil, nil)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	// One alias request applies delete+create atomically on the server.
	alias := aliasName(sessionID)
	aliasBody := map[string]interface{}{
		"actions": []interface{}{
			map[string]interface{}{"delete_alias": map[string]string{"alias_name": alias}},
			map[string]interface{}{"create_alias": map[string]string{
				"collection_name": collection,
				"alias_name":      alias,
			}},
		},
	}
	if err := x.do(ctx, http.MethodPost, "/collections/aliases", aliasBody, nil); err != nil {
		_ = x.do(ctx, http.MethodDelete, "/collections/"+collection, nil, nil)
		return fmt.Errorf("failed to promote alias: %w", err)
	}

	x.mu.Lock()
	previous := x.active[sessionID]
	x.active[sessionID] = collection
	x.mu.Unlock()

	if previous != "" {
		if err := x.do(ctx, http.MethodDelete, "/collections/"+previous, nil, nil); err != nil {
			x.logger.Warn("stale_collection_cleanup_failed",
				slog.String("collection", previous),
				slog.String("error", err.Error()))
		}
	}

	x.logger.Info("collection_promoted",
		slog.String("session_id", sessionID),
		slog.String("collection", collection),
		slog.Int("points", len(points)))
	return nil
}

type searchResult struct {
	Result []struct {
		ID      string                 `json:"id"`
		Score   float32                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
}

func (x *Index) Search(ctx context.Context, sessionID string, vector []float32, k int) ([]domain.VectorMatch, error) {
	body := map[string]interface{}{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var result searchResult
	path := fmt.Sprintf("/collections/%s/points/search", aliasName(sessionID))
	if err := x.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	matches := make([]domain.VectorMatch, 0, len(result.Result))
	for _, hit := range result.Result {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected point id %q: %w", hit.ID, err)
		}
		match := domain.VectorMatch{ID: id, Score: hit.Score}
		if text, ok := hit.Payload["text"].(string); ok {
			match.Content = text
		}
		if hash, ok := hit.Payload["hash"].(string); ok {
			match.Hash = hash
		}
		if ordinal, ok := hit.Payload["ordinal"].(float64); ok {
			match.Ordinal = int(ordinal)
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (x *Index) Drop(ctx context.Context, sessionID string) error {
	x.mu.Lock()
	collection := x.active[sessionID]
	delete(x.active, sessionID)
	x.mu.Unlock()

	alias := aliasName(sessionID)
	aliasBody := map[string]interface{}{
		"actions": []interface{}{
			map[string]interface{}{"delete_alias": map[string]string{"alias_name": alias}},
		},
	}
	if err := x.do(ctx, http.MethodPost, "/collections/aliases", aliasBody, nil); err != nil {
		x.logger.Warn("alias_delete_failed", slog.String("alias", alias), slog.String("error", err.Error()))
	}

	if collection == "" {
		return nil
	}
	if err := x.do(ctx, http.MethodDelete, "/collections/"+collection, nil, nil); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func (x *Index) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call qdrant: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant returned status %d: %s", resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
