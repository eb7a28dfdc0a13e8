package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
	"github.com/poiesic/corpus/storage/badger"
)

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, storage.DocumentRepository, storage.VectorIndex, *aimock.Embedder) {
	t.Helper()

	documents, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := aimock.NewEmbedder()

	opts = append([]Option{WithUploadsDir(t.TempDir())}, opts...)
	pipeline, err := NewPipeline(documents, vectors, embedder, opts...)
	require.NoError(t, err)

	return pipeline, documents, vectors, embedder
}

func TestNewPipelineRequiresDependencies(t *testing.T) {
	documents, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewPipeline(nil, vectors, aimock.NewEmbedder())
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	_, err = NewPipeline(documents, nil, aimock.NewEmbedder())
	assert.ErrorIs(t, err, ErrVectorIndexRequired)

	_, err = NewPipeline(documents, vectors, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestIngestPlainText(t *testing.T) {
	pipeline, documents, vectors, _ := newTestPipeline(t)
	ctx := context.Background()

	content := []byte("Machine Learning: An Overview\n\n" +
		"Machine learning is a field of study concerned with algorithms that improve through experience. " +
		"It has applications in vision, language, and robotics.")

	result, err := pipeline.Ingest(ctx, content, core.MimePlainText, "ml-overview.txt")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Duplicate)
	assert.Equal(t, core.StatusCompleted, result.Status)
	assert.NotEmpty(t, result.DocumentID)
	require.NotEmpty(t, result.Chunks)

	doc, err := documents.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, doc.Status)
	assert.Equal(t, "ml-overview.txt", doc.OriginalName)
	assert.Equal(t, core.FileTypePlainText, doc.FileType)
	assert.Equal(t, core.HashContent(content), doc.ContentHash)
	assert.False(t, doc.ProcessedAt.IsZero())
	assert.Equal(t, len(result.Chunks), doc.Meta.ChunkCount)
	assert.Equal(t, "Machine Learning: An Overview", doc.Meta.Title)

	chunks, err := documents.ChunksOf(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Len(t, chunks, len(result.Chunks))

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(result.Chunks), count)
}

func TestIngestRetainsRawFile(t *testing.T) {
	uploadsDir := t.TempDir()
	pipeline, _, _, _ := newTestPipeline(t, WithUploadsDir(uploadsDir))

	result, err := pipeline.Ingest(context.Background(),
		[]byte("some document content for retention"), core.MimePlainText, "keep.txt")
	require.NoError(t, err)

	stored := filepath.Join(uploadsDir, result.DocumentID+".txt")
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "some document content for retention", string(data))
}

func TestIngestDuplicateShortCircuits(t *testing.T) {
	pipeline, documents, vectors, _ := newTestPipeline(t)
	ctx := context.Background()

	content := []byte("identical bytes uploaded twice under different names")

	first, err := pipeline.Ingest(ctx, content, core.MimePlainText, "first.txt")
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	countBefore, err := vectors.Count(ctx)
	require.NoError(t, err)

	second, err := pipeline.Ingest(ctx, content, core.MimePlainText, "second.txt")
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.DocumentID, second.DocumentID)

	countAfter, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, countBefore, countAfter)

	docs, err := documents.ListDocuments(ctx, storage.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

// flakyHashRepo fails every hash lookup with the injected error.
type flakyHashRepo struct {
	storage.DocumentRepository
	err error
}

func (r *flakyHashRepo) FindByHash(ctx context.Context, hash string) (*core.Document, error) {
	return nil, r.err
}

func TestIngestDedupLookupFailureAborts(t *testing.T) {
	documents, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	lookupErr := errors.New("transient store failure")
	flaky := &flakyHashRepo{DocumentRepository: documents, err: lookupErr}

	uploadsDir := t.TempDir()
	pipeline, err := NewPipeline(flaky, vectors, aimock.NewEmbedder(), WithUploadsDir(uploadsDir))
	require.NoError(t, err)

	ctx := context.Background()
	content := []byte("the same bytes uploaded while the hash index is unavailable")

	// An undetectable duplicate must abort rather than risk a second
	// document row for the hash.
	for i := 0; i < 2; i++ {
		result, err := pipeline.Ingest(ctx, content, core.MimePlainText, "flaky.txt")
		require.ErrorIs(t, err, lookupErr)
		assert.Nil(t, result)
	}

	docs, err := documents.ListDocuments(ctx, storage.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, docs)

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	entries, err := os.ReadDir(uploadsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngestConcurrentSameHash(t *testing.T) {
	pipeline, documents, _, _ := newTestPipeline(t)
	ctx := context.Background()

	content := []byte("concurrently uploaded content that must produce one document row")

	const callers = 8
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := pipeline.Ingest(ctx, content, core.MimePlainText, fmt.Sprintf("upload-%d.txt", i))
			if err == nil {
				ids[i] = result.DocumentID
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, ids[0], ids[i])
	}

	docs, err := documents.ListDocuments(ctx, storage.ListOptions{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngestRejectsOversizedFile(t *testing.T) {
	pipeline, documents, _, _ := newTestPipeline(t, WithMaxFileSize(10))
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, []byte("well over ten bytes of content"), core.MimePlainText, "big.txt")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// Rejected before any persistence.
	docs, err := documents.ListDocuments(ctx, storage.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	pipeline, documents, _, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, []byte("<html></html>"), "text/html", "page.html")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	docs, err := documents.ListDocuments(ctx, storage.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngestRejectsEmptyFile(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)

	_, err := pipeline.Ingest(context.Background(), nil, core.MimePlainText, "empty.txt")
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestIngestEmbeddingFailureMarksDocumentFailed(t *testing.T) {
	uploadsDir := t.TempDir()
	pipeline, documents, vectors, embedder := newTestPipeline(t, WithUploadsDir(uploadsDir))
	ctx := context.Background()

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedding service unavailable")
	}

	_, err := pipeline.Ingest(ctx, []byte("content that cannot be embedded"), core.MimePlainText, "doomed.txt")
	require.Error(t, err)

	docs, err := documents.ListDocuments(ctx, storage.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, core.StatusFailed, docs[0].Status)

	// No chunk rows, no vector entries, raw file retained for inspection.
	chunks, err := documents.ChunksOf(ctx, docs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	count, err := vectors.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, statErr := os.Stat(filepath.Join(uploadsDir, docs[0].StoredName))
	assert.NoError(t, statErr)
}

func TestIngestChunkIndicesContiguous(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)

	// Long enough to split into several chunks.
	content := []byte(strings.Repeat("A paragraph of filler content for chunk boundary checks.\n\n", 80))

	result, err := pipeline.Ingest(context.Background(), content, core.MimeMarkdown, "long.md")
	require.NoError(t, err)
	require.Greater(t, len(result.Chunks), 1)

	for i, chunk := range result.Chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, core.ChunkID(result.DocumentID, i), chunk.ID)
		assert.Equal(t, result.DocumentID, chunk.DocumentID)
	}

	require.NoError(t, core.ValidateChunkSequence(result.Chunks))
}

func TestIngestThreeParagraphSplit(t *testing.T) {
	pipeline, _, _, _ := newTestPipeline(t)

	// Three ~830-character paragraphs, about 2500 characters total, with
	// chunk size 1000 and overlap 200.
	paragraph := strings.TrimSpace(strings.Repeat("Retrieval systems ground answers in evidence. ", 18))
	content := paragraph + "\n\n" + paragraph + "\n\n" + paragraph

	result, err := pipeline.Ingest(context.Background(), []byte(content), core.MimePlainText, "three.txt")
	require.NoError(t, err)

	assert.Len(t, result.Chunks, 3)
	for _, chunk := range result.Chunks {
		assert.LessOrEqual(t, chunk.CharCount, 1000)
	}
}

func TestIngestWordProcessorDocument(t *testing.T) {
	pipeline, documents, _, _ := newTestPipeline(t)
	ctx := context.Background()

	data := buildDocx(t, []string{
		"Quarterly Report: Infrastructure",
		"Spending on storage infrastructure increased in the third quarter as retention requirements grew across the organization and archival workloads were migrated.",
	})

	result, err := pipeline.Ingest(ctx, data, core.MimeWordProcessor, "report.docx")
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, result.Status)
	require.NotEmpty(t, result.Chunks)
	assert.Contains(t, result.Chunks[0].Content, "Quarterly Report")

	doc, err := documents.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, core.FileTypeWordProcessor, doc.FileType)
}
