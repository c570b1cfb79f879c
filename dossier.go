// Package dossier provides retrieval-augmented chat over your own documents.
//
// Documents are split into overlapping chunks, embedded and stored in a
// vector index; chat requests retrieve the most similar chunks and stream a
// grounded completion back.
//
// Example usage:
//
//	client, _ := llm.NewOpenAIClient(llm.ClientConfig{APIKey: os.Getenv("OPENAI_API_KEY")})
//	pipeline := rag.NewPipeline(rag.Config{
//	    Embedder:  client,
//	    Completer: client,
//	    Store:     vector.NewMemoryStore(),
//	})
//
//	res, _ := pipeline.IngestText(ctx, "", "notes.txt", text)
//	stream, _ := pipeline.ChatStream(ctx, []core.Message{core.NewUserMessage("what do my notes say?")})
//	for chunk := range stream {
//	    fmt.Print(chunk.Content)
//	}
package dossier

import (
	"net/http"

	"github.com/hubenschmidt/go-dossier/chunker"
	"github.com/hubenschmidt/go-dossier/core"
	"github.com/hubenschmidt/go-dossier/llm"
	"github.com/hubenschmidt/go-dossier/rag"
	"github.com/hubenschmidt/go-dossier/server"
	"github.com/hubenschmidt/go-dossier/vector"
	"github.com/hubenschmidt/go-dossier/web"
)

// Core type aliases
type (
	Message     = core.Message
	MessageRole = core.MessageRole
	Document    = core.Document
)

// Pipeline aliases
type (
	Pipeline       = rag.Pipeline
	PipelineConfig = rag.Config
	IngestResult   = rag.IngestResult
)

// NewPipeline creates a new ingestion/retrieval pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return rag.NewPipeline(cfg)
}

// Chunker aliases
type (
	Chunker = chunker.Chunker
	Chunk   = chunker.Chunk
)

// NewChunker creates a chunker with the given size and overlap.
func NewChunker(size, overlap int) *Chunker {
	return chunker.New(size, overlap)
}

// LLM client aliases
type (
	Completer    = llm.Completer
	Embedder     = llm.Embedder
	ClientConfig = llm.ClientConfig
	StreamChunk  = llm.StreamChunk
)

// NewOpenAIClient creates a client for any OpenAI-compatible API.
func NewOpenAIClient(cfg ClientConfig) (*llm.OpenAIClient, error) {
	return llm.NewOpenAIClient(cfg)
}

// Vector store aliases
type (
	VectorStore        = vector.Store
	VectorRecord       = vector.Record
	VectorSearchResult = vector.SearchResult
)

// NewMemoryVectorStore creates a new in-memory vector store.
func NewMemoryVectorStore() *vector.MemoryStore {
	return vector.NewMemoryStore()
}

// NewPineconeStore creates a vector store backed by a Pinecone index.
func NewPineconeStore(cfg vector.PineconeConfig) (*vector.PineconeStore, error) {
	return vector.NewPineconeStore(cfg)
}

// NewPgVectorStore creates a pgvector-based vector store.
func NewPgVectorStore(dsn string, dimension int) (*vector.PgVectorStore, error) {
	return vector.NewPgVectorStore(dsn, dimension)
}

// Server aliases
type (
	Server       = server.Server
	ServerConfig = server.Config
)

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) (*Server, error) {
	return server.New(cfg)
}

// WebHandler returns an http.Handler that serves the embedded chat UI.
func WebHandler() http.Handler {
	return web.Handler()
}
