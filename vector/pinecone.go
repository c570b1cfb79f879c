package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hubenschmidt/go-dossier/core"
)

// PineconeStore is a minimal REST client to a Pinecone serverless index.
// IndexHost is the per-index data-plane host from the Pinecone console.
type PineconeStore struct {
	host      string
	apiKey    string
	namespace string
	client    *http.Client
}

type PineconeConfig struct {
	IndexHost string
	APIKey    string
	Namespace string
	Timeout   time.Duration
}

func NewPineconeStore(cfg PineconeConfig) (*PineconeStore, error) {
	if cfg.IndexHost == "" {
		return nil, fmt.Errorf("pinecone store: %w: IndexHost", core.ErrMissingConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone store: %w: APIKey", core.ErrMissingConfig)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	host := cfg.IndexHost
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	return &PineconeStore{
		host:      strings.TrimSuffix(host, "/"),
		apiKey:    cfg.APIKey,
		namespace: cfg.Namespace,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

func (s *PineconeStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	body := map[string]any{
		"vectors":   records,
		"namespace": s.namespace,
	}
	return s.postJSON(ctx, "/vectors/upsert", body, nil)
}

func (s *PineconeStore) Query(ctx context.Context, vec []float64, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 4
	}
	body := map[string]any{
		"vector":          vec,
		"topK":            topK,
		"includeMetadata": true,
		"namespace":       s.namespace,
	}
	var resp struct {
		Matches []struct {
			ID       string   `json:"id"`
			Score    float64  `json:"score"`
			Metadata Metadata `json:"metadata"`
		} `json:"matches"`
	}
	if err := s.postJSON(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		results = append(results, SearchResult{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return results, nil
}

func (s *PineconeStore) DeleteByDocument(ctx context.Context, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"documentId": map[string]any{"$eq": documentID},
		},
		"namespace": s.namespace,
	}
	return s.postJSON(ctx, "/vectors/delete", body, nil)
}

func (s *PineconeStore) Close() error {
	return nil
}

func (s *PineconeStore) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: pinecone POST %s: %s: %s", core.ErrUpstream, path, resp.Status, msg)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ Store = (*PineconeStore)(nil)
