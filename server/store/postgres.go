package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hubenschmidt/go-dossier/core"
	"github.com/hubenschmidt/go-dossier/server/store/migrations"
)

// PostgresDocumentStore implements DocumentStore using PostgreSQL.
type PostgresDocumentStore struct {
	db *sql.DB
}

// NewPostgresDocumentStore opens a PostgreSQL-backed document registry.
func NewPostgresDocumentStore(dsn string) (*PostgresDocumentStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := runPostgresMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresDocumentStore{db: db}, nil
}

func runPostgresMigrations(db *sql.DB) error {
	data, err := migrations.Postgres.ReadFile("postgres/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.Exec(string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

func (s *PostgresDocumentStore) Add(ctx context.Context, rec core.DocumentRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, source, pages, chunk_count, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			pages = EXCLUDED.pages,
			chunk_count = EXCLUDED.chunk_count,
			created_at = EXCLUDED.created_at`,
		rec.ID, rec.Source, rec.Pages, rec.ChunkCount, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresDocumentStore) Get(ctx context.Context, id string) (core.DocumentRecord, error) {
	var rec core.DocumentRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, pages, chunk_count, created_at
		FROM documents WHERE id = $1`, id).Scan(
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

func (s *PostgresDocumentStore) List(ctx context.Context) ([]core.DocumentRecord, error) {
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

func (s *PostgresDocumentStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *PostgresDocumentStore) Close() error {
	return s.db.Close()
}
