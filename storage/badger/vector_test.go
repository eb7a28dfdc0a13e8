package badger

import (
	"context"
	"testing"

	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupVectorIndex(t *testing.T) storage.VectorIndex {
	_, index, backend, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return index
}

func entry(docID string, idx int, vector []float32) *storage.VectorEntry {
	return &storage.VectorEntry{
		ChunkID:    core.ChunkID(docID, idx),
		DocumentID: docID,
		ChunkIndex: idx,
		Content:    "content of " + core.ChunkID(docID, idx),
		Vector:     vector,
	}
}

func TestQuery_Empty(t *testing.T) {
	index := setupVectorIndex(t)

	hits, err := index.Query(context.Background(), []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQuery_RanksBySimilarity(t *testing.T) {
	index := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx,
		entry("doc-1", 0, []float32{1, 0, 0}),
		entry("doc-1", 1, []float32{0.9, 0.1, 0}),
		entry("doc-2", 0, []float32{0, 1, 0}),
	))

	hits, err := index.Query(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "doc-1#0", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-5)
	assert.Equal(t, "doc-1#1", hits[1].ChunkID)
	assert.Greater(t, hits[1].Similarity, hits[2].Similarity)
	assert.InDelta(t, 0.0, hits[2].Similarity, 1e-5)
}

func TestQuery_TopK(t *testing.T) {
	index := setupVectorIndex(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, index.Add(ctx, entry("doc-1", i, []float32{1, float32(i) * 0.01, 0})))
	}

	hits, err := index.Query(ctx, []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestQuery_DocumentFilter(t *testing.T) {
	index := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx,
		entry("doc-1", 0, []float32{1, 0, 0}),
		entry("doc-2", 0, []float32{1, 0, 0}),
		entry("doc-2", 1, []float32{0.5, 0.5, 0}),
	))

	hits, err := index.Query(ctx, []float32{1, 0, 0}, 10, &storage.QueryFilter{DocumentID: "doc-2"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, hit := range hits {
		assert.Equal(t, "doc-2", hit.DocumentID)
	}
}

func TestQuery_InvalidTopK(t *testing.T) {
	index := setupVectorIndex(t)

	_, err := index.Query(context.Background(), []float32{1}, 0, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestDelete(t *testing.T) {
	index := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx,
		entry("doc-1", 0, []float32{1, 0, 0}),
		entry("doc-1", 1, []float32{1, 0, 0}),
	))

	require.NoError(t, index.Delete(ctx, "doc-1#0"))

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Deleting a missing ID is not an error
	require.NoError(t, index.Delete(ctx, "doc-9#0"))
}

func TestDeleteByDocument(t *testing.T) {
	index := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx,
		entry("doc-1", 0, []float32{1, 0, 0}),
		entry("doc-1", 1, []float32{1, 0, 0}),
		entry("doc-2", 0, []float32{1, 0, 0}),
	))

	require.NoError(t, index.DeleteByDocument(ctx, "doc-1"))

	hits, err := index.Query(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc-2", hits[0].DocumentID)
}

func TestDocumentIDs(t *testing.T) {
	index := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx,
		entry("doc-b", 0, []float32{1, 0, 0}),
		entry("doc-a", 0, []float32{1, 0, 0}),
		entry("doc-a", 1, []float32{1, 0, 0}),
	))

	ids, err := index.DocumentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-a", "doc-b"}, ids)
}

func TestVectorIndex_Reset(t *testing.T) {
	index := setupVectorIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, entry("doc-1", 0, []float32{1, 0, 0})))
	require.NoError(t, index.Reset(ctx))

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
