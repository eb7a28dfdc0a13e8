package storage

import (
	"context"

	"github.com/poiesic/corpus/core"
)

// ListOptions controls document listing.
// A zero Status means no status filter.
type ListOptions struct {
	Limit  int
	Offset int
	Status core.DocumentStatus
}

// StoreStats summarizes the contents of both stores.
type StoreStats struct {
	Documents      int
	Chunks         int
	Vectors        int
	StatusCounts   map[string]int
	EmbeddingModel string
}

// DocumentRepository provides persisted records for documents and their chunks.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// PutDocument inserts or replaces a document record and its hash index entry.
	PutDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// FindByHash retrieves the document with the given content hash.
	// Returns ErrNotFound if no document has that hash.
	FindByHash(ctx context.Context, hash string) (*core.Document, error)

	// ListDocuments returns documents ordered by upload time descending.
	ListDocuments(ctx context.Context, opts ListOptions) ([]*core.Document, error)

	// SetStatus updates a document's lifecycle status and ProcessedAt timestamp.
	// Returns ErrNotFound if the document doesn't exist.
	SetStatus(ctx context.Context, id string, status core.DocumentStatus) error

	// PutChunks stores chunk rows. Chunks are immutable once written.
	PutChunks(ctx context.Context, chunks ...*core.Chunk) error

	// ChunksOf returns a document's chunks ordered by index.
	ChunksOf(ctx context.Context, documentID string) ([]*core.Chunk, error)

	// DeleteDocument removes a document's chunk rows, then its hash index
	// entry, then the document row itself.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id string) error

	// CountByStatus returns the number of documents per status name,
	// plus the total chunk row count.
	CountByStatus(ctx context.Context) (statusCounts map[string]int, chunkCount int, err error)

	// Reset removes all document and chunk records.
	Reset(ctx context.Context) error

	// Close releases repository resources.
	Close() error
}

// VectorEntry is a chunk embedding together with its searchable payload.
type VectorEntry struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Vector     []float32 `json:"vector"`
}

// QueryFilter restricts a vector query by equality on entry fields.
type QueryFilter struct {
	// DocumentID restricts results to a single document when non-empty.
	DocumentID string
}

// VectorIndex is a persisted nearest-neighbor store over chunk embeddings.
// Similarity is reported as 1 - distance in the index's metric space.
// Implementations must be thread-safe and support concurrent access.
type VectorIndex interface {
	// Add inserts or replaces entries keyed by chunk ID.
	Add(ctx context.Context, entries ...*VectorEntry) error

	// Query returns up to topK hits ordered by similarity descending.
	// A nil filter searches the whole index.
	Query(ctx context.Context, vector []float32, topK int, filter *QueryFilter) ([]*core.ChunkHit, error)

	// Delete removes entries by chunk ID. Missing IDs are not an error.
	Delete(ctx context.Context, chunkIDs ...string) error

	// DeleteByDocument removes every entry belonging to a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// DocumentIDs returns the distinct document IDs present in the index.
	DocumentIDs(ctx context.Context) ([]string, error)

	// Count returns the number of entries in the index.
	Count(ctx context.Context) (int, error)

	// Reset removes all entries.
	Reset(ctx context.Context) error

	// Close releases index resources.
	Close() error
}
