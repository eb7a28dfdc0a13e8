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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyDocumentID indicates the document ID field is empty.
	ErrEmptyDocumentID = errors.New("document ID cannot be empty")

	// ErrEmptyContentHash indicates the content hash field is empty.
	ErrEmptyContentHash = errors.New("content hash cannot be empty")

	// ErrEmptyContent indicates the chunk Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidFileType indicates an invalid FileType value.
	ErrInvalidFileType = errors.New("invalid file type")

	// ErrInvalidStatus indicates an invalid DocumentStatus value.
	ErrInvalidStatus = errors.New("invalid document status")

	// ErrChunkIDMismatch indicates a chunk ID does not match its document and index.
	ErrChunkIDMismatch = errors.New("chunk ID does not match document and index")

	// ErrChunkSequenceGap indicates chunk indices are not contiguous from zero.
	ErrChunkSequenceGap = errors.New("chunk indices must be contiguous from zero")
)
