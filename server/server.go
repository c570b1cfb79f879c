// Package server exposes the ingestion, search and chat pipelines over HTTP.
package server

import (
	"fmt"
	"net/http"

	"github.com/hubenschmidt/go-dossier/monitor"
	"github.com/hubenschmidt/go-dossier/rag"
	"github.com/hubenschmidt/go-dossier/server/store"
)

// Config configures a new Server instance. Pipeline and Documents are
// required; a nil Collector disables the stats endpoint counters.
type Config struct {
	Pipeline  *rag.Pipeline
	Documents store.DocumentStore
	Collector *monitor.Collector
}

// Server is the HTTP layer over the RAG pipelines.
type Server struct {
	pipeline  *rag.Pipeline
	documents store.DocumentStore
	collector *monitor.Collector
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, fmt.Errorf("server: pipeline is required")
	}
	if cfg.Documents == nil {
		return nil, fmt.Errorf("server: document store is required")
	}
	if cfg.Collector == nil {
		cfg.Collector = monitor.NewCollector()
	}
	return &Server{
		pipeline:  cfg.Pipeline,
		documents: cfg.Documents,
		collector: cfg.Collector,
	}, nil
}

// Close releases the server's resources.
func (s *Server) Close() error {
	return s.documents.Close()
}

// Handler returns an http.Handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("POST /chat", s.handleChat)

	mux.HandleFunc("GET /documents", s.handleDocumentList)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDocumentDelete)
	mux.HandleFunc("GET /stats", s.handleStats)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
