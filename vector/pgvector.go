package vector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"
)

// PgVectorStore is a PostgreSQL-based vector store using pgvector. It is the
// self-hosted alternative to the managed Pinecone index.
type PgVectorStore struct {
	db        *sql.DB
	dimension int
}

// NewPgVectorStore opens a pgvector-backed store. The dimension parameter
// specifies the embedding dimension (e.g., 1536 for OpenAI).
func NewPgVectorStore(dsn string, dimension int) (*PgVectorStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PgVectorStore{db: db, dimension: dimension}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PgVectorStore) migrate() error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			page INT NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			embedding vector(%d),
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks (document_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}
	return nil
}

// Upsert inserts or replaces records by ID.
func (s *PgVectorStore) Upsert(ctx context.Context, records []Record) error {
	for _, rec := range records {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, source, page, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				source = EXCLUDED.source,
				page = EXCLUDED.page,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding
		`, rec.ID, rec.Metadata.DocumentID, rec.Metadata.Source, rec.Metadata.Page,
			rec.Metadata.Text, pgvector.NewVector(toFloat32(rec.Values)))
		if err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Query returns the topK nearest records by cosine similarity.
func (s *PgVectorStore) Query(ctx context.Context, vec []float64, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 4
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, source, page, content, 1 - (embedding <=> $1) AS score
		FROM chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgvector.NewVector(toFloat32(vec)), topK)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Metadata.DocumentID, &r.Metadata.Source,
			&r.Metadata.Page, &r.Metadata.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// DeleteByDocument removes every record belonging to the document.
func (s *PgVectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	return err
}

// Close closes the database connection.
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

var _ Store = (*PgVectorStore)(nil)
