package core

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// NewDocumentID generates a new unique document identifier.
func NewDocumentID() string {
	return uuid.NewString()
}

// HashContent computes the deduplication hash for raw document bytes.
// Identical bytes always produce identical hashes, so the hash doubles
// as the document's dedup key.
func HashContent(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkID derives the identity of a chunk from its parent document and
// position. The format "{documentID}#{index}" is persisted in both stores
// and must not change.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s#%d", documentID, index)
}

// FileType identifies the format of an ingested document.
type FileType int

const (
	// FileTypePDF is a PDF document.
	FileTypePDF FileType = iota + 1
	// FileTypePlainText is a plain text file.
	FileTypePlainText
	// FileTypeMarkdown is a markdown file.
	FileTypeMarkdown
	// FileTypeWordProcessor is a word-processor (docx) document.
	FileTypeWordProcessor
)

// Supported mime types.
const (
	MimePDF           = "application/pdf"
	MimePlainText     = "text/plain"
	MimeMarkdown      = "text/markdown"
	MimeWordProcessor = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// FileTypeForMime maps a declared mime type to a FileType.
// Returns false if the mime type is not in the supported set.
func FileTypeForMime(mime string) (FileType, bool) {
	switch mime {
	case MimePDF:
		return FileTypePDF, true
	case MimePlainText:
		return FileTypePlainText, true
	case MimeMarkdown:
		return FileTypeMarkdown, true
	case MimeWordProcessor:
		return FileTypeWordProcessor, true
	default:
		return 0, false
	}
}

// String returns the short name of the file type.
func (ft FileType) String() string {
	switch ft {
	case FileTypePDF:
		return "pdf"
	case FileTypePlainText:
		return "txt"
	case FileTypeMarkdown:
		return "md"
	case FileTypeWordProcessor:
		return "docx"
	default:
		return "unknown"
	}
}

// Extension returns the file extension used for stored raw files.
func (ft FileType) Extension() string {
	return ft.String()
}

// DocumentStatus tracks a document through the ingestion lifecycle.
type DocumentStatus int

const (
	// StatusProcessing means ingestion has started but not completed.
	StatusProcessing DocumentStatus = iota + 1
	// StatusCompleted means all chunks are persisted and indexed.
	StatusCompleted
	// StatusFailed means extraction, chunking, or indexing failed.
	StatusFailed
)

// String returns the status name as persisted and reported.
func (s DocumentStatus) String() string {
	switch s {
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DocumentMeta holds metadata synthesized from a document's extracted text.
type DocumentMeta struct {
	Title        string
	Author       string
	Language     string
	Keywords     []string
	Summary      string
	TotalChars   int
	TotalWords   int
	ChunkCount   int
	AvgChunkSize float64
}

// Document represents a single ingested file.
// Created with StatusProcessing at ingestion start; mutated only by the
// ingestion pipeline and the deletion path.
type Document struct {
	ID           string
	OriginalName string
	StoredName   string // name of the retained raw file under the uploads directory
	FileType     FileType
	ContentHash  string
	SizeBytes    int64
	UploadedAt   time.Time
	ProcessedAt  time.Time
	Status       DocumentStatus
	Meta         DocumentMeta
}

// Chunk is a bounded contiguous slice of a document's extracted text,
// the unit of embedding and retrieval. Chunks are immutable once written
// and deleted only as a whole set with their document.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int // 0-based, contiguous, unique per document
	Content    string
	CharCount  int
	WordCount  int
	TokenCount int
	CreatedAt  time.Time
}

// ChunkHit is a single vector-index match for a query embedding.
type ChunkHit struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Content    string
	Similarity float32 // 1 - distance, a bounded heuristic rather than a probability
}
