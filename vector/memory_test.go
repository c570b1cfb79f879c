package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UpsertIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := Record{ID: "doc-0", Values: []float64{1, 0}, Metadata: Metadata{DocumentID: "doc", Text: "first"}}
	require.NoError(t, store.Upsert(ctx, []Record{rec}))

	rec.Metadata.Text = "second"
	require.NoError(t, store.Upsert(ctx, []Record{rec}))

	assert.Equal(t, 1, store.Count())

	results, err := store.Query(ctx, []float64{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second", results[0].Metadata.Text)
}

func TestMemoryStore_QueryOrdering(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		{ID: "a-0", Values: []float64{1, 0}, Metadata: Metadata{DocumentID: "a"}},
		{ID: "a-1", Values: []float64{0.9, 0.1}, Metadata: Metadata{DocumentID: "a"}},
		{ID: "a-2", Values: []float64{0, 1}, Metadata: Metadata{DocumentID: "a"}},
		{ID: "a-3", Values: []float64{0.5, 0.5}, Metadata: Metadata{DocumentID: "a"}},
	}))

	results, err := store.Query(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, "a-0", results[0].ID)
}

func TestMemoryStore_DeleteByDocument(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		{ID: "x-0", Values: []float64{1, 0}, Metadata: Metadata{DocumentID: "x"}},
		{ID: "x-1", Values: []float64{0, 1}, Metadata: Metadata{DocumentID: "x"}},
		{ID: "y-0", Values: []float64{1, 1}, Metadata: Metadata{DocumentID: "y"}},
	}))

	require.NoError(t, store.DeleteByDocument(ctx, "x"))

	results, err := store.Query(ctx, []float64{1, 0}, 10)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "x", r.Metadata.DocumentID)
	}
	assert.Equal(t, 1, store.Count())
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)

	// mismatched or empty vectors
	assert.Equal(t, 0.0, CosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}
