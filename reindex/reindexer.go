// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reindex

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
)

// Config holds configuration for the reindexing operation.
type Config struct {
	// BatchSize is the number of chunks to embed in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Workers is the number of batches embedded concurrently
	Workers int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Workers:        2,
	}
}

// Reindexer re-embeds every stored chunk and rewrites its vector index
// entry. Run it after changing the embedding model; chunk rows and
// document records are left untouched.
type Reindexer struct {
	documents storage.DocumentRepository
	vectors   storage.VectorIndex
	embedder  ai.Embedder
	config    *Config
	progress  io.Writer
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr)
func NewReindexer(
	documents storage.DocumentRepository,
	vectors storage.VectorIndex,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
) (*Reindexer, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}

	return &Reindexer{
		documents: documents,
		vectors:   vectors,
		embedder:  embedder,
		config:    config,
		progress:  progress,
	}, nil
}

// Run executes the reindexing operation. Every chunk of every completed
// document is re-embedded with the configured embedder; batches run
// concurrently and progress is reported to the configured writer.
func (r *Reindexer) Run(ctx context.Context) error {
	chunks, err := r.collectChunks(ctx)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		fmt.Fprintf(r.progress, "No chunks found in store (0 chunks)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d chunks (batch size: %d, workers: %d)\n",
		len(chunks), r.config.BatchSize, r.config.Workers)

	tracker := NewProgressTracker(r.progress, len(chunks), r.config.ReportInterval)
	tracker.Start()

	pool, err := ants.NewPool(r.config.Workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for start := 0; start < len(chunks); start += r.config.BatchSize {
		end := start + r.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			if err := r.processBatch(ctx, batch); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}

			tracker.Increment(len(batch))
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		len(chunks), elapsed.Round(time.Second), float64(len(chunks))/elapsed.Seconds())

	return nil
}

// collectChunks loads every chunk of every completed document.
func (r *Reindexer) collectChunks(ctx context.Context) ([]*core.Chunk, error) {
	const pageSize = 100

	var all []*core.Chunk
	for offset := 0; ; offset += pageSize {
		docs, err := r.documents.ListDocuments(ctx, storage.ListOptions{
			Limit:  pageSize,
			Offset: offset,
			Status: core.StatusCompleted,
		})
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}

		for _, doc := range docs {
			chunks, err := r.documents.ChunksOf(ctx, doc.ID)
			if err != nil {
				return nil, fmt.Errorf("load chunks of %s: %w", doc.ID, err)
			}
			all = append(all, chunks...)
		}

		if len(docs) < pageSize {
			break
		}
	}

	return all, nil
}

// processBatch embeds one batch of chunks and rewrites their index
// entries, retrying each step with exponential backoff.
func (r *Reindexer) processBatch(ctx context.Context, batch []*core.Chunk) error {
	contents := make([]string, len(batch))
	for i, chunk := range batch {
		contents[i] = chunk.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = r.embedder.EmbedTexts(ctx, contents)
		return embedErr
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vectors), len(batch))
	}

	entries := make([]*storage.VectorEntry, len(batch))
	for i, chunk := range batch {
		entries[i] = &storage.VectorEntry{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.Index,
			Content:    chunk.Content,
			Vector:     vectors[i],
		}
	}

	err = RetryWithBackoff(ctx, func() error {
		return r.vectors.Add(ctx, entries...)
	}, r.config.MaxRetries, r.config.RetryDelay)
	if err != nil {
		return fmt.Errorf("rewrite index entries: %w", err)
	}

	return nil
}
