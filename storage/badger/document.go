package badger

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close releases repository resources.
func (r *DocumentRepository) Close() error {
	return nil
}

// PutDocument inserts or replaces a document record, maintaining the
// content-hash and upload-date indices.
func (r *DocumentRepository) PutDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(doc.ID)

		// Drop the old date index entry when replacing
		old, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if old != nil && !old.UploadedAt.Equal(doc.UploadedAt) {
			if err := tx.Delete(makeDateKey(old.UploadedAt, old.ID)); err != nil {
				return err
			}
		}

		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}

		if err := tx.Set(makeHashKey(doc.ContentHash), []byte(doc.ID)); err != nil {
			return err
		}

		if err := tx.Set(makeDateKey(doc.UploadedAt, doc.ID), []byte(doc.ID)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindByHash retrieves the document with the given content hash.
func (r *DocumentRepository) FindByHash(ctx context.Context, hash string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeHashKey(hash))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}

		var docID string
		if err := item.Value(func(val []byte) error {
			docID = string(val)
			return nil
		}); err != nil {
			return err
		}

		result, err = r.readDocument(tx, makeDocumentKey(docID))
		if err != nil {
			return err
		}
		if result == nil {
			// Dangling hash index entry
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListDocuments returns documents ordered by upload time descending.
func (r *DocumentRepository) ListDocuments(ctx context.Context, opts storage.ListOptions) ([]*core.Document, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Reverse = true

		iter := tx.NewIterator(iterOpts)
		defer iter.Close()

		// Seek past the newest possible date-index key, then walk backwards
		startKey := makePartialDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(documentDatePrefix + ":")

		skipped := 0
		for iter.Seek(startKey); iter.Valid() && len(results) < opts.Limit; iter.Next() {
			key := iter.Item().Key()
			if !bytes.HasPrefix(key, prefix) {
				break
			}

			var docID string
			if err := iter.Item().Value(func(val []byte) error {
				docID = string(val)
				return nil
			}); err != nil {
				return err
			}

			doc, err := r.readDocument(tx, makeDocumentKey(docID))
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			if opts.Status != 0 && doc.Status != opts.Status {
				continue
			}
			if skipped < opts.Offset {
				skipped++
				continue
			}
			results = append(results, doc)
		}
		return nil
	}, false)

	return results, err
}

// SetStatus updates a document's status and ProcessedAt timestamp.
func (r *DocumentRepository) SetStatus(ctx context.Context, id string, status core.DocumentStatus) error {
	if err := core.ValidateStatus(status); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		doc.Status = status
		doc.ProcessedAt = time.Now().UTC()

		value, err := storage.MarshalDocument(doc)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// PutChunks stores chunk rows.
func (r *DocumentRepository) PutChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			if chunk.CreatedAt.IsZero() {
				chunk.CreatedAt = time.Now().UTC()
			}

			value, err := storage.MarshalChunk(chunk)
			if err != nil {
				return err
			}
			if err := tx.Set(makeChunkKey(chunk.DocumentID, chunk.Index), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// ChunksOf returns a document's chunks ordered by index.
// Chunk keys encode the index in BigEndian, so iteration order is index order.
func (r *DocumentRepository) ChunksOf(ctx context.Context, documentID string) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkScanPrefix(documentID)

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			results = append(results, chunk)
		}
		return nil
	}, false)
	return results, err
}

// DeleteDocument removes a document's chunk rows, then its hash index entry,
// then the document row and date index entry.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		doc, err := r.readDocument(tx, key)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		// Chunk rows first
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkScanPrefix(id)
		opts.PrefetchValues = false

		iter := tx.NewIterator(opts)
		var chunkKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			chunkKeys = append(chunkKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, ck := range chunkKeys {
			if err := tx.Delete(ck); err != nil {
				return err
			}
		}

		if err := tx.Delete(makeHashKey(doc.ContentHash)); err != nil {
			return err
		}
		if err := tx.Delete(makeDateKey(doc.UploadedAt, doc.ID)); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CountByStatus returns document counts per status name and the chunk row count.
func (r *DocumentRepository) CountByStatus(ctx context.Context) (map[string]int, int, error) {
	statusCounts := make(map[string]int)
	chunkCount := 0

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")

		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}
			statusCounts[doc.Status.String()]++
		}
		iter.Close()

		chunkOpts := badger.DefaultIteratorOptions
		chunkOpts.Prefix = []byte(chunkPrefix + ":")
		chunkOpts.PrefetchValues = false

		chunkIter := tx.NewIterator(chunkOpts)
		defer chunkIter.Close()
		for chunkIter.Rewind(); chunkIter.Valid(); chunkIter.Next() {
			chunkCount++
		}
		return nil
	}, false)

	return statusCounts, chunkCount, err
}

// Reset removes all document and chunk records.
func (r *DocumentRepository) Reset(ctx context.Context) error {
	for _, prefix := range []string{documentPrefix, documentHashPrefix, documentDatePrefix, chunkPrefix} {
		if err := r.backend.DropPrefix([]byte(prefix + ":")); err != nil {
			return err
		}
	}
	return nil
}

// readDocument reads a document within a transaction.
// Returns nil (no error) when the key doesn't exist.
func (r *DocumentRepository) readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}
