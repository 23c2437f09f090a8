package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/54b3r/interviewly-rag/internal/rag"
)

// PostgresStore is a ChunkStore backed by PostgreSQL with the pgvector
// extension. The embedding column is an unconstrained vector, so documents
// embedded by different models can coexist. pgvector stores float32.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn, installs the vector extension and the
// document_chunks table if needed, and returns a ready store.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := bootstrapPostgres(ctx, dsn); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// bootstrapPostgres runs the schema migration on a dedicated connection.
// The vector type must exist before pooled connections register it.
func bootstrapPostgres(ctx context.Context, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("postgres: connect: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	const ddl = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS document_chunks (
    id             TEXT        PRIMARY KEY,
    owner_id       TEXT,
    document_id    TEXT        NOT NULL,
    document_type  TEXT        NOT NULL,
    chunk_index    INTEGER     NOT NULL,
    text           TEXT        NOT NULL,
    embedding      vector      NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_document_chunks_owner
    ON document_chunks (owner_id);
CREATE INDEX IF NOT EXISTS idx_document_chunks_document
    ON document_chunks (document_id, chunk_index);
`
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// InsertBatch inserts chunks in one transaction using a pipelined batch.
func (s *PostgresStore) InsertBatch(ctx context.Context, chunks []rag.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := validateBatch(chunks); err != nil {
		return err
	}

	const q = `
INSERT INTO document_chunks
    (id, owner_id, document_id, document_type, chunk_index, text, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(q, c.ID, c.OwnerID, c.DocumentID, c.DocumentType, c.ChunkIndex,
			c.Text, pgvector.NewVector(narrow(c.Embedding)), c.CreatedAt.UTC())
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

// Scan returns the chunks owned by *ownerID, or all chunks when ownerID is nil.
func (s *PostgresStore) Scan(ctx context.Context, ownerID *string) ([]rag.DocumentChunk, error) {
	const base = `
SELECT id, owner_id, document_id, document_type, chunk_index, text, embedding, created_at
FROM   document_chunks`

	var (
		rows pgx.Rows
		err  error
	)
	if ownerID != nil {
		rows, err = s.pool.Query(ctx, base+` WHERE owner_id = $1`, *ownerID)
	} else {
		rows, err = s.pool.Query(ctx, base)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: scan: %w", err)
	}

	chunks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rag.DocumentChunk, error) {
		var (
			c   rag.DocumentChunk
			vec pgvector.Vector
			ts  time.Time
		)
		if err := row.Scan(&c.ID, &c.OwnerID, &c.DocumentID, &c.DocumentType, &c.ChunkIndex, &c.Text, &vec, &ts); err != nil {
			return c, err
		}
		c.Embedding = widen(vec.Slice())
		c.CreatedAt = ts.UTC()
		return c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan rows: %w", err)
	}
	return chunks, nil
}

// DeleteDocument removes all chunks of documentID.
func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	return s.delete(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
}

// DeleteOwner removes all chunks owned by ownerID.
func (s *PostgresStore) DeleteOwner(ctx context.Context, ownerID string) (int, error) {
	return s.delete(ctx, `DELETE FROM document_chunks WHERE owner_id = $1`, ownerID)
}

func (s *PostgresStore) delete(ctx context.Context, q, arg string) (int, error) {
	tag, err := s.pool.Exec(ctx, q, arg)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Ping verifies a pooled connection can reach the server.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Close closes every pooled connection.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var _ rag.ChunkStore = (*PostgresStore)(nil)
