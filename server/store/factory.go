package store

import (
	"fmt"
	"strings"
)

// NewDocumentStore creates a document registry based on the DSN.
// - Empty DSN: SQLite at data/dossier.db
// - postgres:// or postgresql://: PostgreSQL
// - Anything else: SQLite at the specified path
func NewDocumentStore(dsn string) (DocumentStore, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		s, err := NewPostgresDocumentStore(dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil
	}
	return NewSQLiteDocumentStore(dsn)
}
