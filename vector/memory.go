package vector

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryStore is an in-memory vector store for development and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates a new in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// Upsert inserts or replaces records by ID.
func (s *MemoryStore) Upsert(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		s.records[rec.ID] = rec
	}
	return nil
}

// Query ranks all records by brute-force cosine similarity.
func (s *MemoryStore) Query(ctx context.Context, vec []float64, topK int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.records))
	for _, rec := range s.records {
		if len(rec.Values) == 0 {
			continue
		}
		results = append(results, SearchResult{
			ID:       rec.ID,
			Score:    CosineSimilarity(vec, rec.Values),
			Metadata: rec.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteByDocument removes every record belonging to the document.
func (s *MemoryStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.records {
		if rec.Metadata.DocumentID == documentID {
			delete(s.records, id)
		}
	}
	return nil
}

// Close is a no-op for in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Count returns the number of stored records.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// CosineSimilarity calculates the cosine similarity between two vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
