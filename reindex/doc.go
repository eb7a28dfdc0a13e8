// Package reindex re-embeds every stored chunk after an embedding-model
// change.
//
// Embedding vectors are only comparable within one model, so switching
// models (or dimensionality) invalidates the whole vector index. The
// Reindexer walks all completed documents, re-embeds their chunks in
// concurrent batches with retry and backoff, and rewrites the index
// entries in place. Document records and chunk rows are not modified.
package reindex
