package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/interviewly-rag/internal/rag"
)

// SQLiteStore is a ChunkStore backed by a local SQLite database.
// Embeddings are stored as little-endian float64 BLOBs, so vectors round-trip
// bit-exactly.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS document_chunks (
    id             TEXT    PRIMARY KEY,
    owner_id       TEXT,
    document_id    TEXT    NOT NULL,
    document_type  TEXT    NOT NULL,
    chunk_index    INTEGER NOT NULL,
    text           TEXT    NOT NULL,
    embedding      BLOB    NOT NULL,
    created_at     INTEGER NOT NULL  -- Unix timestamp (nanoseconds, UTC)
);
CREATE INDEX IF NOT EXISTS idx_document_chunks_owner
    ON document_chunks (owner_id);
CREATE INDEX IF NOT EXISTS idx_document_chunks_document
    ON document_chunks (document_id, chunk_index);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// InsertBatch persists chunks in one transaction.
func (s *SQLiteStore) InsertBatch(ctx context.Context, chunks []rag.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := validateBatch(chunks); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
INSERT INTO document_chunks
    (id, owner_id, document_id, document_type, chunk_index, text, embedding, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("store: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err := stmt.ExecContext(ctx,
			c.ID, nullString(c.OwnerID), c.DocumentID, c.DocumentType, c.ChunkIndex,
			c.Text, encodeEmbedding(c.Embedding), c.CreatedAt.UTC().UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("store: insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Scan returns the chunks owned by *ownerID, or all chunks when ownerID is nil.
func (s *SQLiteStore) Scan(ctx context.Context, ownerID *string) ([]rag.DocumentChunk, error) {
	const base = `
SELECT id, owner_id, document_id, document_type, chunk_index, text, embedding, created_at
FROM   document_chunks`

	var (
		rows *sql.Rows
		err  error
	)
	if ownerID != nil {
		rows, err = s.db.QueryContext(ctx, base+` WHERE owner_id = ?`, *ownerID)
	} else {
		rows, err = s.db.QueryContext(ctx, base)
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan: %w", err)
	}
	defer rows.Close()

	var out []rag.DocumentChunk
	for rows.Next() {
		var (
			c     rag.DocumentChunk
			owner sql.NullString
			blob  []byte
			ts    int64
		)
		if err := rows.Scan(&c.ID, &owner, &c.DocumentID, &c.DocumentType, &c.ChunkIndex, &c.Text, &blob, &ts); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		if owner.Valid {
			c.OwnerID = &owner.String
		}
		if c.Embedding, err = decodeEmbedding(blob); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(0, ts).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: scan rows: %w", err)
	}
	return out, nil
}

// DeleteDocument removes all chunks of documentID.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	return s.delete(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID)
}

// DeleteOwner removes all chunks owned by ownerID.
func (s *SQLiteStore) DeleteOwner(ctx context.Context, ownerID string) (int, error) {
	return s.delete(ctx, `DELETE FROM document_chunks WHERE owner_id = ?`, ownerID)
}

func (s *SQLiteStore) delete(ctx context.Context, q, arg string) (int, error) {
	res, err := s.db.ExecContext(ctx, q, arg)
	if err != nil {
		return 0, fmt.Errorf("store: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: delete rows affected: %w", err)
	}
	return int(n), nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// nullString maps a nil owner to SQL NULL.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ rag.ChunkStore = (*SQLiteStore)(nil)
