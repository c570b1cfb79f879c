// Package vector provides vector storage and similarity search.
package vector

import "context"

// Metadata is the payload stored alongside each vector. Text carries a copy of
// the chunk so retrieval needs no second lookup.
type Metadata struct {
	DocumentID string `json:"documentId"`
	Source     string `json:"source"`
	Page       int    `json:"page,omitempty"`
	Text       string `json:"text"`
}

// Record is one stored vector, keyed {documentID}-{chunkIndex}.
type Record struct {
	ID       string    `json:"id"`
	Values   []float64 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

// SearchResult is a retrieved record with its similarity score.
type SearchResult struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// Store provides vector storage and similarity search operations.
type Store interface {
	// Upsert inserts or replaces records by ID. The batch fails as a whole.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to topK records nearest to the given vector, ordered by
	// non-increasing similarity score.
	Query(ctx context.Context, vec []float64, topK int) ([]SearchResult, error)

	// DeleteByDocument removes every record whose metadata document id matches.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
