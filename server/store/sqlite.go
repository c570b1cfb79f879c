package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hubenschmidt/go-dossier/core"
	"github.com/hubenschmidt/go-dossier/server/store/migrations"
)

// SQLiteDocumentStore implements DocumentStore using SQLite.
type SQLiteDocumentStore struct {
	db *sql.DB
}

// NewSQLiteDocumentStore opens a SQLite-backed document registry, creating the
// data directory and schema as needed.
func NewSQLiteDocumentStore(dsn string) (*SQLiteDocumentStore, error) {
	if dsn == "" {
		dsn = "data/dossier.db"
	}

	dir := filepath.Dir(dsn)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := runSQLiteMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteDocumentStore{db: db}, nil
}

func runSQLiteMigrations(db *sql.DB) error {
	data, err := migrations.SQLite.ReadFile("sqlite/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Exec(string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

func (s *SQLiteDocumentStore) Add(ctx context.Context, rec core.DocumentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (id, source, pages, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.Pages, rec.ChunkCount, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *SQLiteDocumentStore) Get(ctx context.Context, id string) (core.DocumentRecord, error) {
	var rec core.DocumentRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, pages, chunk_count, created_at
		FROM documents WHERE id = ?`, id).Scan(
		&rec.ID, &rec.Source, &rec.Pages, &rec.ChunkCount, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return core.DocumentRecord{}, ErrNotFound
	}
	if err != nil {
		return core.DocumentRecord{}, fmt.Errorf("query document: %w", err)
	}
	return rec, nil
}

func (s *SQLiteDocumentStore) List(ctx context.Context) ([]core.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, pages, chunk_count, created_at
		FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var records []core.DocumentRecord
	for rows.Next() {
		var rec core.DocumentRecord
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Pages, &rec.ChunkCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteDocumentStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *SQLiteDocumentStore) Close() error {
	return s.db.Close()
}
