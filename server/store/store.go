// Package store persists the registry of ingested documents. The vectors
// themselves live in the vector index; this registry only tracks what was
// uploaded so documents can be listed and deleted as a whole.
package store

import (
	"context"
	"errors"

	"github.com/hubenschmidt/go-dossier/core"
)

// ErrNotFound is returned when a document record is not found.
var ErrNotFound = errors.New("not found")

// DocumentStore defines the interface for document registry persistence.
type DocumentStore interface {
	Add(ctx context.Context, rec core.DocumentRecord) error
	Get(ctx context.Context, id string) (core.DocumentRecord, error)
	List(ctx context.Context) ([]core.DocumentRecord, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
