package search

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidMode is returned when a mode string doesn't name a search mode.
	ErrInvalidMode = errors.New("invalid search mode")

	// ErrNoWebProvider is recorded on a response when a mode wanted web
	// evidence but no web provider is configured.
	ErrNoWebProvider = errors.New("no web search provider configured")
)
