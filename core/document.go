package core

import "time"

// Document is an uploaded source document. The raw text is ephemeral: only the
// chunk copies stored alongside their vectors survive ingestion.
type Document struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Text   string `json:"-"`
	Pages  int    `json:"pages,omitempty"`
}

// DocumentRecord is the registry row kept for an ingested document.
type DocumentRecord struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Pages      int       `json:"pages"`
	ChunkCount int       `json:"chunkCount"`
	CreatedAt  time.Time `json:"createdAt"`
}
