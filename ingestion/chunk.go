package ingestion

import (
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/corpus/core"
)

// Chunking defaults. The recursive splitter prefers the coarsest
// separator that keeps each piece within the target size.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	tokenEncoding = "cl100k_base"
)

var chunkSeparators = []string{"\n\n", "\n", " ", ""}

// chunker splits extracted text into overlapping chunks with per-chunk
// character, word, and token statistics.
type chunker struct {
	splitter textsplitter.RecursiveCharacter

	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
}

func newChunker(chunkSize, chunkOverlap int) *chunker {
	return &chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(chunkSeparators),
		),
	}
}

// split returns the document's chunks in index order. Whitespace-only
// text yields no chunks.
func (c *chunker) split(documentID, text string) ([]*core.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	chunks := make([]*core.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &core.Chunk{
			ID:         core.ChunkID(documentID, i),
			DocumentID: documentID,
			Index:      i,
			Content:    piece,
			CharCount:  len(piece),
			WordCount:  len(strings.Fields(piece)),
			TokenCount: c.countTokens(piece),
			CreatedAt:  now,
		}
	}

	return chunks, nil
}

// countTokens uses the cl100k_base encoding when available and falls
// back to the rough len/4 estimate when the encoding cannot be loaded.
func (c *chunker) countTokens(text string) int {
	c.tokenizerOnce.Do(func() {
		tk, err := tiktoken.GetEncoding(tokenEncoding)
		if err == nil {
			c.tokenizer = tk
		}
	})

	if c.tokenizer == nil {
		return len(text) / 4
	}

	return len(c.tokenizer.Encode(text, nil, nil))
}
