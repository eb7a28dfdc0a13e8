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


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID and ContentHash must not be empty
//   - FileType must be a supported type
//   - Status must be a known lifecycle status
//
// NOT validated (populated during processing):
//   - Meta (empty until metadata synthesis runs)
//   - ProcessedAt (zero until ingestion finishes)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyDocumentID)
	}

	if doc.ContentHash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContentHash)
	}

	if err := ValidateFileType(doc.FileType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if err := ValidateStatus(doc.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - DocumentID must not be empty
//   - Index must be non-negative
//   - Content must not be empty
//   - ID must equal ChunkID(DocumentID, Index)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDocumentID)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidChunk, chunk.Index)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.ID != ChunkID(chunk.DocumentID, chunk.Index) {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrChunkIDMismatch)
	}

	return nil
}

// ValidateChunkSequence checks that a document's chunks form a contiguous
// 0-based index sequence in order.
func ValidateChunkSequence(chunks []*Chunk) error {
	for i, chunk := range chunks {
		if err := ValidateChunk(chunk); err != nil {
			return err
		}
		if chunk.Index != i {
			return fmt.Errorf("%w: expected index %d, got %d", ErrChunkSequenceGap, i, chunk.Index)
		}
	}
	return nil
}

// ValidateFileType validates that a FileType has a supported value.
func ValidateFileType(ft FileType) error {
	switch ft {
	case FileTypePDF, FileTypePlainText, FileTypeMarkdown, FileTypeWordProcessor:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidFileType, ft)
	}
}

// ValidateStatus validates that a DocumentStatus has a known value.
func ValidateStatus(s DocumentStatus) error {
	switch s {
	case StatusProcessing, StatusCompleted, StatusFailed:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidStatus, s)
	}
}
