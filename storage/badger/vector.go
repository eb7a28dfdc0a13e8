package badger

import (
	"context"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// VectorIndex implements storage.VectorIndex for BadgerDB.
// Entries are scanned brute-force; the corpus sizes this store targets
// (thousands of chunks) don't warrant an ANN structure.
type VectorIndex struct {
	backend *Backend
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a new VectorIndex.
func NewVectorIndex(backend *Backend) *VectorIndex {
	return &VectorIndex{backend: backend}
}

// Close releases index resources.
func (v *VectorIndex) Close() error {
	return nil
}

// Add inserts or replaces entries keyed by chunk ID.
func (v *VectorIndex) Add(ctx context.Context, entries ...*storage.VectorEntry) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			value, err := storage.MarshalVectorEntry(entry)
			if err != nil {
				return err
			}
			if err := tx.Set(makeVectorKey(entry.ChunkID), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Query returns up to topK hits ordered by similarity descending.
// Similarity is 1 - cosine distance between the query vector and the entry.
func (v *VectorIndex) Query(ctx context.Context, vector []float32, topK int, filter *storage.QueryFilter) ([]*core.ChunkHit, error) {
	if topK <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	scanPrefix := []byte(vectorPrefix + ":")
	if filter != nil && filter.DocumentID != "" {
		scanPrefix = makeVectorScanPrefix(filter.DocumentID)
	}

	var hits []*core.ChunkHit
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scanPrefix

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var entry *storage.VectorEntry
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalVectorEntry(val)
				return err
			}); err != nil {
				return err
			}
			if len(entry.Vector) == 0 {
				continue
			}

			similarity := cosineSimilarity(vector, entry.Vector)
			hits = append(hits, &core.ChunkHit{
				ChunkID:    entry.ChunkID,
				DocumentID: entry.DocumentID,
				ChunkIndex: entry.ChunkIndex,
				Content:    entry.Content,
				Similarity: similarity,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(hits, func(a, b *core.ChunkHit) int {
		if a.Similarity > b.Similarity {
			return -1
		}
		if a.Similarity < b.Similarity {
			return 1
		}
		return 0
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Delete removes entries by chunk ID. Missing IDs are not an error.
func (v *VectorIndex) Delete(ctx context.Context, chunkIDs ...string) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunkID := range chunkIDs {
			if err := tx.Delete(makeVectorKey(chunkID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteByDocument removes every entry belonging to a document.
func (v *VectorIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeVectorScanPrefix(documentID)
		opts.PrefetchValues = false

		iter := tx.NewIterator(opts)
		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DocumentIDs returns the distinct document IDs present in the index.
func (v *VectorIndex) DocumentIDs(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix + ":")

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := iter.Item().Value(func(val []byte) error {
				entry, err := storage.UnmarshalVectorEntry(val)
				if err != nil {
					return err
				}
				seen[entry.DocumentID] = true
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Count returns the number of entries in the index.
func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	count := 0
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix + ":")
		opts.PrefetchValues = false

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Reset removes all entries.
func (v *VectorIndex) Reset(ctx context.Context) error {
	return v.backend.DropPrefix([]byte(vectorPrefix + ":"))
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for zero vectors or mismatched lengths truncated to the shorter.
func cosineSimilarity(a, b []float32) float32 {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}

	var dot, normA, normB float32
	for i := 0; i < minLen; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
