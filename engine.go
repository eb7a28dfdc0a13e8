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

package corpus

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/ai/openai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/ingestion"
	"github.com/poiesic/corpus/reindex"
	"github.com/poiesic/corpus/search"
	"github.com/poiesic/corpus/storage"
	"github.com/poiesic/corpus/storage/badger"
	"github.com/poiesic/corpus/websearch"
)

// Engine is the top-level facade over both stores, the ingestion
// pipeline, and the hybrid searcher.
type Engine struct {
	backend   *badger.Backend
	documents storage.DocumentRepository
	vectors   storage.VectorIndex
	embedder  ai.Embedder
	pipeline  *ingestion.Pipeline
	searcher  *search.Searcher
	aiConfig  *ai.Config
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	aiConfig     *ai.Config
	embedder     ai.Embedder
	webProvider  websearch.Provider
	searchConfig *search.Config
	uploadsDir   string
	maxFileSize  int64
	chunkSize    int
	chunkOverlap int
	inMemory     bool
	logger       *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(cfg *ai.Config) EngineOption {
	return func(o *engineOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithEmbedder injects an embedder directly, bypassing the OpenAI
// client construction. Intended for tests and custom deployments.
func WithEmbedder(embedder ai.Embedder) EngineOption {
	return func(o *engineOptions) {
		o.embedder = embedder
	}
}

// WithWebProvider sets the web-search collaborator.
func WithWebProvider(provider websearch.Provider) EngineOption {
	return func(o *engineOptions) {
		o.webProvider = provider
	}
}

// WithSearchConfig replaces the search configuration.
func WithSearchConfig(cfg search.Config) EngineOption {
	return func(o *engineOptions) {
		o.searchConfig = &cfg
	}
}

// WithUploadsDir sets the directory for retained raw files.
func WithUploadsDir(dir string) EngineOption {
	return func(o *engineOptions) {
		o.uploadsDir = dir
	}
}

// WithMaxFileSize sets the upload size ceiling in bytes.
func WithMaxFileSize(limit int64) EngineOption {
	return func(o *engineOptions) {
		o.maxFileSize = limit
	}
}

// WithChunking sets the chunk target size and overlap in characters.
func WithChunking(size, overlap int) EngineOption {
	return func(o *engineOptions) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithInMemory opens the store in memory, discarding all data on Close.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open wires up the storage backend, the two stores, the embedder, the
// ingestion pipeline, and the searcher. It also runs a reconciliation
// sweep that purges vector entries orphaned by earlier failed ingests.
func Open(filePath string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	documents := badger.NewDocumentRepository(backend)
	vectors := badger.NewVectorIndex(backend)

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	pipelineOpts := []ingestion.Option{ingestion.WithLogger(options.logger)}
	if options.uploadsDir != "" {
		pipelineOpts = append(pipelineOpts, ingestion.WithUploadsDir(options.uploadsDir))
	}
	if options.maxFileSize > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithMaxFileSize(options.maxFileSize))
	}
	if options.chunkSize > 0 {
		pipelineOpts = append(pipelineOpts, ingestion.WithChunking(options.chunkSize, options.chunkOverlap))
	}

	pipeline, err := ingestion.NewPipeline(documents, vectors, embedder, pipelineOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	searchOpts := []search.Option{search.WithLogger(options.logger)}
	if options.searchConfig != nil {
		searchOpts = append(searchOpts, search.WithConfig(*options.searchConfig))
	}
	if options.webProvider != nil {
		searchOpts = append(searchOpts, search.WithWebProvider(options.webProvider))
	}

	searcher, err := search.NewSearcher(documents, vectors, embedder, searchOpts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	e := &Engine{
		backend:   backend,
		documents: documents,
		vectors:   vectors,
		embedder:  embedder,
		pipeline:  pipeline,
		searcher:  searcher,
		aiConfig:  options.aiConfig,
		logger:    options.logger,
	}

	if err := e.reconcile(context.Background()); err != nil {
		e.Close()
		return nil, err
	}

	return e, nil
}

// Close releases the searcher's worker pool, both stores, and the
// backend, in that order.
func (e *Engine) Close() error {
	e.searcher.Release()

	if err := e.documents.Close(); err != nil {
		e.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := e.vectors.Close(); err != nil {
		e.logger.Error("error closing vector index", "err", err)
		return err
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Ingest processes one uploaded file through the full pipeline.
func (e *Engine) Ingest(ctx context.Context, data []byte, mimeType, filename string) (*ingestion.Result, error) {
	return e.pipeline.Ingest(ctx, data, mimeType, filename)
}

// Search runs one hybrid retrieval call.
func (e *Engine) Search(ctx context.Context, query string, mode search.Mode, filter *search.Filter) *search.Response {
	return e.searcher.Search(ctx, query, mode, filter)
}

// SearchDocument searches within a single document.
func (e *Engine) SearchDocument(ctx context.Context, documentID, query string, topK int) ([]*search.DocumentResult, error) {
	return e.searcher.SearchDocument(ctx, documentID, query, topK)
}

// Suggestions proposes query completions mined from corpus content.
func (e *Engine) Suggestions(ctx context.Context, partialQuery string) []string {
	return e.searcher.Suggestions(ctx, partialQuery)
}

// DocumentContext returns up to maxChunks of a document's text in index order.
func (e *Engine) DocumentContext(ctx context.Context, documentID string, maxChunks int) (string, error) {
	return e.searcher.DocumentContext(ctx, documentID, maxChunks)
}

// Document retrieves one document record.
func (e *Engine) Document(ctx context.Context, id string) (*core.Document, error) {
	return e.documents.GetDocument(ctx, id)
}

// Documents lists document records ordered by upload time descending.
func (e *Engine) Documents(ctx context.Context, opts storage.ListOptions) ([]*core.Document, error) {
	return e.documents.ListDocuments(ctx, opts)
}

// Delete removes a document's vector entries, chunk rows, and record,
// then sweeps for orphans left by earlier partial failures.
func (e *Engine) Delete(ctx context.Context, documentID string) error {
	if err := e.vectors.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	if err := e.documents.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	return e.reconcile(ctx)
}

// Stats reports document, chunk, and vector counts plus the status breakdown.
func (e *Engine) Stats(ctx context.Context) (*storage.StoreStats, error) {
	statusCounts, chunkCount, err := e.documents.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	vectorCount, err := e.vectors.Count(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, count := range statusCounts {
		total += count
	}

	return &storage.StoreStats{
		Documents:      total,
		Chunks:         chunkCount,
		Vectors:        vectorCount,
		StatusCounts:   statusCounts,
		EmbeddingModel: e.aiConfig.EmbeddingModel,
	}, nil
}

// Reset clears both stores.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.vectors.Reset(ctx); err != nil {
		return err
	}
	return e.documents.Reset(ctx)
}

// Reindex re-embeds every stored chunk with the current embedder.
func (e *Engine) Reindex(ctx context.Context, config *reindex.Config, progress io.Writer) error {
	r, err := reindex.NewReindexer(e.documents, e.vectors, e.embedder, config, progress)
	if err != nil {
		return err
	}
	return r.Run(ctx)
}

// reconcile purges vector entries whose document is gone or failed.
// There is no cross-store transaction between the vector index and the
// document repository, so a crash or failure between the two writes can
// orphan index entries; the sweep is idempotent and cheap enough to run
// on every Open and Delete.
func (e *Engine) reconcile(ctx context.Context) error {
	documentIDs, err := e.vectors.DocumentIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range documentIDs {
		doc, err := e.documents.GetDocument(ctx, id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// Fall through to the purge below.
		case err != nil:
			return err
		case doc.Status != core.StatusFailed:
			continue
		}

		e.logger.Warn("purging orphaned vector entries", "document_id", id)
		if err := e.vectors.DeleteByDocument(ctx, id); err != nil {
			return err
		}
	}

	return nil
}
