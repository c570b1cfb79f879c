// Package rag wires the chunker, embedding gateway and vector store into the
// document ingestion and retrieval-augmented chat pipelines.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hubenschmidt/go-dossier/chunker"
	"github.com/hubenschmidt/go-dossier/core"
	"github.com/hubenschmidt/go-dossier/extract"
	"github.com/hubenschmidt/go-dossier/llm"
	"github.com/hubenschmidt/go-dossier/vector"
)

const DefaultTopK = 4

// Pipeline composes the gateways behind the upload, search and chat endpoints.
// Construct it once per process and share it across requests.
type Pipeline struct {
	chunker   *chunker.Chunker
	embedder  llm.Embedder
	completer llm.Completer
	store     vector.Store
	topK      int
}

type Config struct {
	Chunker   *chunker.Chunker
	Embedder  llm.Embedder
	Completer llm.Completer
	Store     vector.Store
	TopK      int
}

func NewPipeline(cfg Config) *Pipeline {
	if cfg.Chunker == nil {
		cfg.Chunker = chunker.New(chunker.DefaultChunkSize, chunker.DefaultOverlap)
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Pipeline{
		chunker:   cfg.Chunker,
		embedder:  cfg.Embedder,
		completer: cfg.Completer,
		store:     cfg.Store,
		topK:      cfg.TopK,
	}
}

// IngestResult reports what one ingestion stored.
type IngestResult struct {
	DocumentID string `json:"documentId"`
	ChunkCount int    `json:"chunkCount"`
	Pages      int    `json:"pages"`
}

// Ingest chunks the extracted pages, embeds every chunk and upserts one batch
// of records keyed {documentID}-{chunkIndex}. Already-upserted work is not
// rolled back on failure. An empty document is a validation error.
func (p *Pipeline) Ingest(ctx context.Context, documentID, source string, pages []extract.Page) (*IngestResult, error) {
	if documentID == "" {
		documentID = uuid.NewString()
	}

	var chunks []chunker.Chunk
	for _, page := range pages {
		chunks = append(chunks, p.chunker.SplitPage(documentID, page.Text, page.Number, len(chunks))...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("ingest %q: %w", source, core.ErrNoChunks)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, core.NewServiceError("ingest", "embedding", err)
	}

	records := make([]vector.Record, len(chunks))
	for i, ch := range chunks {
		records[i] = vector.Record{
			ID:     fmt.Sprintf("%s-%d", documentID, ch.Index),
			Values: embeddings[i].Embedding,
			Metadata: vector.Metadata{
				DocumentID: documentID,
				Source:     source,
				Page:       ch.Page,
				Text:       ch.Text,
			},
		}
	}
	if err := p.store.Upsert(ctx, records); err != nil {
		return nil, core.NewServiceError("ingest", "vector store", err)
	}

	return &IngestResult{
		DocumentID: documentID,
		ChunkCount: len(chunks),
		Pages:      len(pages),
	}, nil
}

// IngestText ingests a raw text document as a single unpaginated page.
func (p *Pipeline) IngestText(ctx context.Context, documentID, source, text string) (*IngestResult, error) {
	return p.Ingest(ctx, documentID, source, []extract.Page{{Number: 0, Text: text}})
}

// Search embeds the query and returns the topK most similar stored chunks in
// descending score order.
func (p *Pipeline) Search(ctx context.Context, query string, topK int) ([]vector.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search: %w", core.ErrEmptyInput)
	}
	if topK <= 0 {
		topK = p.topK
	}

	resp, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, core.NewServiceError("search", "embedding", err)
	}
	results, err := p.store.Query(ctx, resp.Embedding, topK)
	if err != nil {
		return nil, core.NewServiceError("search", "vector store", err)
	}
	return results, nil
}

// BuildContext returns the retrieved chunk texts for a query, best match first.
// An empty index yields an empty slice, not an error.
func (p *Pipeline) BuildContext(ctx context.Context, query string) ([]string, error) {
	results, err := p.Search(ctx, query, p.topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Metadata.Text)
	}
	return texts, nil
}

// DeleteDocument removes every vector belonging to the document.
func (p *Pipeline) DeleteDocument(ctx context.Context, documentID string) error {
	if err := p.store.DeleteByDocument(ctx, documentID); err != nil {
		return core.NewServiceError("delete document", "vector store", err)
	}
	return nil
}

// ChatStream retrieves context for the latest user message, assembles the
// augmented prompt and streams the completion.
func (p *Pipeline) ChatStream(ctx context.Context, conversation []core.Message) (<-chan llm.StreamChunk, error) {
	query := latestUserContent(conversation)
	if query == "" {
		return nil, fmt.Errorf("chat: %w", core.ErrEmptyInput)
	}

	texts, err := p.BuildContext(ctx, query)
	if err != nil {
		return nil, err
	}

	stream, err := p.completer.ChatStream(ctx, AssemblePrompt(conversation, texts))
	if err != nil {
		return nil, core.NewServiceError("chat", "completion", err)
	}
	return stream, nil
}

func latestUserContent(conversation []core.Message) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == core.RoleUser {
			return strings.TrimSpace(conversation[i].Content)
		}
	}
	return ""
}
