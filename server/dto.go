package server

import "github.com/hubenschmidt/go-dossier/core"

type UploadResponse struct {
	Success    bool   `json:"success"`
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
	Pages      int    `json:"pages,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"topK,omitempty"`
}

type SearchResultMetadata struct {
	Source string `json:"source"`
	Page   int    `json:"page,omitempty"`
}

type SearchResult struct {
	Content  string               `json:"content"`
	Metadata SearchResultMetadata `json:"metadata"`
	Score    float64              `json:"score"`
}

// ChatRequest carries either a full conversation or a single message.
type ChatRequest struct {
	Messages []HistoryMessage `json:"messages,omitempty"`
	Message  string           `json:"message,omitempty"`
}

type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type DocumentListResponse struct {
	Documents []core.DocumentRecord `json:"documents"`
}

// ErrorResponse is the body for upload/search failures.
type ErrorResponse struct {
	Message string `json:"message"`
}

// ChatErrorResponse is the body for chat setup failures.
type ChatErrorResponse struct {
	Error string `json:"error"`
}
