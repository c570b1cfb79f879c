package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hubenschmidt/go-dossier/core"
	"github.com/hubenschmidt/go-dossier/extract"
	"github.com/hubenschmidt/go-dossier/llm"
)

const maxUploadBytes = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if !extract.Supported(header.Filename) {
		writeError(w, http.StatusBadRequest, "please upload a PDF, text or markdown file")
		return
	}

	pages, err := extract.FromUpload(header.Filename, file)
	if err != nil {
		log.Printf("[upload] extract %s: %v", header.Filename, err)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("could not extract text from %s", header.Filename))
		return
	}

	res, err := s.pipeline.Ingest(r.Context(), "", header.Filename, pages)
	if err != nil {
		if core.IsValidation(err) {
			writeError(w, http.StatusBadRequest, "the uploaded file contains no extractable text")
			return
		}
		s.collector.RecordError()
		log.Printf("[upload] ingest %s: %v", header.Filename, err)
		writeError(w, http.StatusInternalServerError, "failed to process document")
		return
	}

	rec := core.DocumentRecord{
		ID:         res.DocumentID,
		Source:     header.Filename,
		Pages:      res.Pages,
		ChunkCount: res.ChunkCount,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.documents.Add(r.Context(), rec); err != nil {
		// Vectors are already stored; log and keep going.
		log.Printf("[upload] record %s: %v", res.DocumentID, err)
	}

	s.collector.RecordUpload(res.ChunkCount)
	log.Printf("[upload] stored %s as %s (%d chunks)", header.Filename, res.DocumentID, res.ChunkCount)

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:    true,
		DocumentID: res.DocumentID,
		ChunkCount: res.ChunkCount,
		Pages:      res.Pages,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	results, err := s.pipeline.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		if core.IsValidation(err) {
			writeError(w, http.StatusBadRequest, "query must not be empty")
			return
		}
		s.collector.RecordError()
		log.Printf("[search] %v", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	s.collector.RecordSearch()

	out := make([]SearchResult, 0, len(results))
	for _, res := range results {
		out = append(out, SearchResult{
			Content: res.Metadata.Text,
			Metadata: SearchResultMetadata{
				Source: res.Metadata.Source,
				Page:   res.Metadata.Page,
			},
			Score: res.Score,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ChatErrorResponse{Error: "invalid request body"})
		return
	}

	conversation := make([]core.Message, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		conversation = append(conversation, core.Message{Role: core.MessageRole(m.Role), Content: m.Content})
	}
	if len(conversation) == 0 && req.Message != "" {
		conversation = append(conversation, core.NewUserMessage(req.Message))
	}

	start := time.Now()
	stream, err := s.pipeline.ChatStream(r.Context(), conversation)
	if err != nil {
		if core.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, ChatErrorResponse{Error: "message must not be empty"})
			return
		}
		s.collector.RecordError()
		log.Printf("[chat] %v", err)
		writeJSON(w, http.StatusInternalServerError, ChatErrorResponse{Error: "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, ChatErrorResponse{Error: "streaming not supported"})
		return
	}

	// The producer blocks on the unbuffered channel; if we stop relaying
	// early (stream error, client gone) it must still be drained so it can
	// finish and release its upstream connection.
	defer func() { go drainStream(stream) }()

	// Relay fragments as they arrive. A mid-stream failure truncates the body;
	// the status line is already written so there is nothing else to report.
	var usage llm.Usage
	for chunk := range stream {
		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
		if chunk.Error != nil {
			s.collector.RecordError()
			log.Printf("[chat] stream: %v", chunk.Error)
			break
		}
		if chunk.Done {
			break
		}
		if _, err := w.Write([]byte(chunk.Content)); err != nil {
			// Client went away; stop relaying.
			break
		}
		flusher.Flush()
	}

	s.collector.RecordChat(time.Since(start), usage.PromptTokens, usage.CompletionTokens)
}

func drainStream(stream <-chan llm.StreamChunk) {
	for range stream {
	}
}

func (s *Server) handleDocumentList(w http.ResponseWriter, r *http.Request) {
	records, err := s.documents.List(r.Context())
	if err != nil {
		log.Printf("[documents] list: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if records == nil {
		records = []core.DocumentRecord{}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: records})
}

func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.pipeline.DeleteDocument(r.Context(), id); err != nil {
		s.collector.RecordError()
		log.Printf("[documents] delete vectors %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}
	if err := s.documents.Delete(r.Context(), id); err != nil {
		log.Printf("[documents] delete record %s: %v", id, err)
	}

	log.Printf("[documents] deleted %s", id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Summary())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Message: msg})
}
