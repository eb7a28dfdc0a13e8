package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// DefaultMaxFileSize is the upload size ceiling.
const DefaultMaxFileSize = 50 * 1024 * 1024 // 50 MB

// DefaultUploadsDir is where raw upload bytes are retained.
const DefaultUploadsDir = "uploads"

// Result reports the outcome of a single ingestion.
type Result struct {
	DocumentID string
	Duplicate  bool
	Chunks     []*core.Chunk
	Meta       core.DocumentMeta
	Status     core.DocumentStatus
}

// Pipeline orchestrates the ingestion of uploaded documents: validation,
// dedup, raw-file retention, extraction, chunking, metadata synthesis,
// embedding, and the writes to both stores.
type Pipeline struct {
	documents storage.DocumentRepository
	vectors   storage.VectorIndex
	embedder  ai.Embedder
	chunker   *chunker

	uploadsDir   string
	maxFileSize  int64
	chunkSize    int
	chunkOverlap int

	// Serializes concurrent ingests of identical bytes so the dedup
	// check and the document write act as one step per hash.
	hashLocksMu sync.Mutex
	hashLocks   map[string]*sync.Mutex

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithUploadsDir sets the directory for retained raw files.
// Default is "uploads". The directory is created if missing.
func WithUploadsDir(dir string) Option {
	return func(p *Pipeline) error {
		if dir != "" {
			p.uploadsDir = dir
		}
		return nil
	}
}

// WithMaxFileSize sets the upload size ceiling in bytes.
// Default is 50 MB.
func WithMaxFileSize(limit int64) Option {
	return func(p *Pipeline) error {
		if limit > 0 {
			p.maxFileSize = limit
		}
		return nil
	}
}

// WithChunking sets the chunk target size and overlap in characters.
// Defaults are 1000 and 200.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.chunkSize = size
		}
		if overlap >= 0 {
			p.chunkOverlap = overlap
		}
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentRepository,
	vectors storage.VectorIndex,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		documents:    documents,
		vectors:      vectors,
		embedder:     embedder,
		uploadsDir:   DefaultUploadsDir,
		maxFileSize:  DefaultMaxFileSize,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		hashLocks:    make(map[string]*sync.Mutex),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(p.uploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	p.chunker = newChunker(p.chunkSize, p.chunkOverlap)

	return p, nil
}

// Ingest processes one uploaded file end to end.
//
// Validation failures and duplicate content cause no side effects beyond
// the duplicate short-circuit result. Once the document record exists, a
// failure at any later step marks it failed, keeps the raw file, writes
// no chunk rows, and returns the error.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, mimeType, filename string) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > p.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d byte limit", ErrFileTooLarge, len(data), p.maxFileSize)
	}

	fileType, ok := core.FileTypeForMime(mimeType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	hash := core.HashContent(data)

	unlock := p.lockHash(hash)
	defer unlock()

	existing, err := p.documents.FindByHash(ctx, hash)
	switch {
	case err == nil:
		p.logger.Info("duplicate upload short-circuited",
			"document_id", existing.ID, "filename", filename)
		return &Result{
			DocumentID: existing.ID,
			Duplicate:  true,
			Meta:       existing.Meta,
			Status:     existing.Status,
		}, nil
	case !errors.Is(err, storage.ErrNotFound):
		// A lookup failure must not create a second record for the hash.
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	doc := &core.Document{
		ID:           core.NewDocumentID(),
		OriginalName: filename,
		FileType:     fileType,
		ContentHash:  hash,
		SizeBytes:    int64(len(data)),
		UploadedAt:   time.Now().UTC(),
		Status:       core.StatusProcessing,
	}
	doc.StoredName = doc.ID + "." + fileType.Extension()

	if err := os.WriteFile(filepath.Join(p.uploadsDir, doc.StoredName), data, 0o644); err != nil {
		return nil, fmt.Errorf("retain raw file: %w", err)
	}

	if err := p.documents.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document record: %w", err)
	}

	result, err := p.process(ctx, doc, data)
	if err != nil {
		p.logger.Error("ingestion failed", "document_id", doc.ID,
			"filename", filename, "err", err)
		if statusErr := p.documents.SetStatus(ctx, doc.ID, core.StatusFailed); statusErr != nil {
			p.logger.Error("error marking document failed",
				"document_id", doc.ID, "err", statusErr)
		}
		return nil, err
	}

	p.logger.Info("document ingested", "document_id", doc.ID,
		"filename", filename, "chunks", len(result.Chunks))

	return result, nil
}

// process runs the stages that follow document-record creation.
func (p *Pipeline) process(ctx context.Context, doc *core.Document, data []byte) (*Result, error) {
	text, err := extractText(data, doc.FileType)
	if err != nil {
		return nil, err
	}

	chunks, err := p.chunker.split(doc.ID, text)
	if err != nil {
		return nil, fmt.Errorf("chunking: %w", err)
	}
	if err := core.ValidateChunkSequence(chunks); err != nil {
		return nil, fmt.Errorf("chunking: %w", err)
	}

	doc.Meta = synthesizeMetadata(doc.OriginalName, text, chunks)

	if len(chunks) > 0 {
		contents := make([]string, len(chunks))
		for i, chunk := range chunks {
			contents[i] = chunk.Content
		}

		vectors, err := p.embedder.EmbedTexts(ctx, contents)
		if err != nil {
			return nil, fmt.Errorf("embedding: %w", err)
		}
		if len(vectors) != len(chunks) {
			return nil, fmt.Errorf("embedding: got %d vectors for %d chunks", len(vectors), len(chunks))
		}

		entries := make([]*storage.VectorEntry, len(chunks))
		for i, chunk := range chunks {
			entries[i] = &storage.VectorEntry{
				ChunkID:    chunk.ID,
				DocumentID: chunk.DocumentID,
				ChunkIndex: chunk.Index,
				Content:    chunk.Content,
				Vector:     vectors[i],
			}
		}

		if err := p.vectors.Add(ctx, entries...); err != nil {
			return nil, fmt.Errorf("vector index add: %w", err)
		}

		if err := p.documents.PutChunks(ctx, chunks...); err != nil {
			return nil, fmt.Errorf("store chunk rows: %w", err)
		}
	}

	doc.Status = core.StatusCompleted
	doc.ProcessedAt = time.Now().UTC()
	if err := p.documents.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("finalize document record: %w", err)
	}

	return &Result{
		DocumentID: doc.ID,
		Chunks:     chunks,
		Meta:       doc.Meta,
		Status:     doc.Status,
	}, nil
}

func (p *Pipeline) lockHash(hash string) func() {
	p.hashLocksMu.Lock()
	mu, ok := p.hashLocks[hash]
	if !ok {
		mu = &sync.Mutex{}
		p.hashLocks[hash] = mu
	}
	p.hashLocksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}
