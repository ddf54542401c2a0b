// Package repository implements the vector index contract on PostgreSQL
// with the pgvector extension.
//
// Expected schema:
//
//	CREATE TABLE session_chunks (
//	    session_id TEXT        NOT NULL,
//	    chunk_id   UUID        PRIMARY KEY,
//	    ordinal    INT         NOT NULL,
//	    content    TEXT        NOT NULL,
//	    hash       TEXT        NOT NULL,
//	    embedding  VECTOR      NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX session_chunks_session_idx ON session_chunks (session_id);
package repository

import (
	"context"
	"fmt"
	"time"

	"agent-orchestrator/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgvectorIndex is a Postgres-backed domain.VectorIndex. Replace runs
// delete+insert in one transaction; MVCC gives concurrent searches either
// the old row set or the new one, never a mix.
type PgvectorIndex struct {
	pool *pgxpool.Pool
}

// NewPgvectorIndex creates an index backed by the given connection pool.
func NewPgvectorIndex(pool *pgxpool.Pool) *PgvectorIndex {
	return &PgvectorIndex{pool: pool}
}

var _ domain.VectorIndex = (*PgvectorIndex)(nil)

func (x *PgvectorIndex) Replace(ctx context.Context, sessionID string, dimension int, points []domain.VectorPoint) error {
	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM session_chunks WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to clear session chunks: %w", err)
	}

	now := time.Now()
	rows := make([][]interface{}, len(points))
	for i, p := range points {
		rows[i] = []interface{}{
			sessionID,
			p.ID,
			p.Ordinal,
			p.Content,
			p.Hash,
			pgvector.NewVector(p.Vector),
			now,
		}
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"session_chunks"},
		[]string{"session_id", "chunk_id", "ordinal", "content", "hash", "embedding", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert chunks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (x *PgvectorIndex) Search(ctx context.Context, sessionID string, vector []float32, k int) ([]domain.VectorMatch, error) {
	query := `
		SELECT chunk_id, ordinal, content, hash,
		       1 - (embedding <=> $2) AS score
		FROM session_chunks
		WHERE session_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3
	`
	rows, err := x.pool.Query(ctx, query, sessionID, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var matches []domain.VectorMatch
	for rows.Next() {
		var m domain.VectorMatch
		var score float64
		if err := rows.Scan(&m.ID, &m.Ordinal, &m.Content, &m.Hash, &score); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}
	return matches, nil
}

func (x *PgvectorIndex) Drop(ctx context.Context, sessionID string) error {
	if _, err := x.pool.Exec(ctx, `DELETE FROM session_chunks WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to drop session chunks: %w", err)
	}
	return nil
}
