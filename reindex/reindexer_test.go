package reindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
	"github.com/poiesic/corpus/storage/badger"
)

func seedDocument(t *testing.T, documents storage.DocumentRepository, vectors storage.VectorIndex, id string, chunkCount int) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, documents.PutDocument(ctx, &core.Document{
		ID:           id,
		OriginalName: id + ".txt",
		StoredName:   id + ".txt",
		FileType:     core.FileTypePlainText,
		ContentHash:  core.HashContent([]byte(id)),
		SizeBytes:    1,
		UploadedAt:   time.Now().UTC(),
		Status:       core.StatusCompleted,
	}))

	chunks := make([]*core.Chunk, chunkCount)
	entries := make([]*storage.VectorEntry, chunkCount)
	for i := range chunks {
		content := fmt.Sprintf("%s chunk %d content", id, i)
		chunks[i] = &core.Chunk{
			ID:         core.ChunkID(id, i),
			DocumentID: id,
			Index:      i,
			Content:    content,
			CharCount:  len(content),
			WordCount:  4,
			CreatedAt:  time.Now().UTC(),
		}
		// Stale vectors from the previous embedding model.
		entries[i] = &storage.VectorEntry{
			ChunkID:    chunks[i].ID,
			DocumentID: id,
			ChunkIndex: i,
			Content:    content,
			Vector:     []float32{1, 0, 0},
		}
	}
	require.NoError(t, documents.PutChunks(ctx, chunks...))
	require.NoError(t, vectors.Add(ctx, entries...))
}

func fastConfig() *Config {
	return &Config{
		BatchSize:      2,
		ReportInterval: 1,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		Workers:        2,
	}
}

func TestNewReindexerRequiresDependencies(t *testing.T) {
	documents, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	var buf bytes.Buffer

	_, err = NewReindexer(nil, vectors, aimock.NewEmbedder(), nil, &buf)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	_, err = NewReindexer(documents, nil, aimock.NewEmbedder(), nil, &buf)
	assert.ErrorIs(t, err, ErrVectorIndexRequired)

	_, err = NewReindexer(documents, vectors, nil, nil, &buf)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestRunEmptyStore(t *testing.T) {
	documents, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	var buf bytes.Buffer
	r, err := NewReindexer(documents, vectors, aimock.NewEmbedder(), fastConfig(), &buf)
	require.NoError(t, err)

	require.NoError(t, r.Run(context.Background()))
	assert.Contains(t, buf.String(), "No chunks found")
}

func TestRunRewritesEveryVector(t *testing.T) {
	documents, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	seedDocument(t, documents, vectors, "doc-1", 3)
	seedDocument(t, documents, vectors, "doc-2", 2)

	embedder := aimock.NewEmbedder()
	embedder.Dim = 8

	var buf bytes.Buffer
	r, err := NewReindexer(documents, vectors, embedder, fastConfig(), &buf)
	require.NoError(t, err)

	require.NoError(t, r.Run(ctx))

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// The entries now carry the new model's vectors: querying with the
	// deterministic embedding of a chunk's content must rank that chunk
	// first with a near-perfect score.
	query := aimock.DeterministicVector("doc-1 chunk 0 content", 8)
	hits, err := vectors.Query(ctx, query, 1, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.ChunkID("doc-1", 0), hits[0].ChunkID)
	assert.InDelta(t, 1.0, float64(hits[0].Similarity), 1e-3)

	assert.Contains(t, buf.String(), "Reindex complete. Processed 5 chunks")
}

func TestRunSkipsFailedDocuments(t *testing.T) {
	documents, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	seedDocument(t, documents, vectors, "doc-1", 2)

	require.NoError(t, documents.PutDocument(ctx, &core.Document{
		ID:           "doc-failed",
		OriginalName: "failed.txt",
		StoredName:   "failed.txt",
		FileType:     core.FileTypePlainText,
		ContentHash:  core.HashContent([]byte("doc-failed")),
		SizeBytes:    1,
		UploadedAt:   time.Now().UTC(),
		Status:       core.StatusFailed,
	}))

	var buf bytes.Buffer
	r, err := NewReindexer(documents, vectors, aimock.NewEmbedder(), fastConfig(), &buf)
	require.NoError(t, err)

	require.NoError(t, r.Run(ctx))
	assert.Contains(t, buf.String(), "Starting reindex of 2 chunks")
}

func TestRunEmbeddingFailureSurfaces(t *testing.T) {
	documents, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	seedDocument(t, documents, vectors, "doc-1", 2)

	embedder := aimock.NewEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	var buf bytes.Buffer
	r, err := NewReindexer(documents, vectors, embedder, fastConfig(), &buf)
	require.NoError(t, err)

	err = r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed batch")
}
