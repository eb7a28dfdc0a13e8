package ingestion

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrVectorIndexRequired is returned when a vector index is not provided.
	ErrVectorIndexRequired = errors.New("vector index required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrFileTooLarge is returned when an upload exceeds the configured size ceiling.
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedType is returned when the declared mime type is outside the supported set.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrEmptyFile is returned when the upload contains no bytes.
	ErrEmptyFile = errors.New("empty file")

	// ErrExtractionFailed is returned when no text could be extracted from a file.
	ErrExtractionFailed = errors.New("text extraction failed")
)
