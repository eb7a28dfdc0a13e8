package badger

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	documentPrefix     = "docrec"
	documentHashPrefix = "dochsh"
	documentDatePrefix = "docdat"
	chunkPrefix        = "chkrec"
	vectorPrefix       = "vecrec"
)

// makeDocumentKey generates a key for a document by ID.
func makeDocumentKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentPrefix, id))
}

// makeHashKey generates a key for the content-hash uniqueness index.
// The value stored under it is the owning document's ID.
func makeHashKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentHashPrefix, hash))
}

// makeDateKey generates a composite key for the upload-date index.
// Format: prefix:timestamp:id
func makeDateKey(uploadedAt time.Time, id string) []byte {
	prefix := documentDatePrefix + ":"
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(uploadedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// makePartialDateKey generates a partial key for seeking within the date index.
func makePartialDateKey(uploadedAt time.Time) []byte {
	prefix := documentDatePrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(uploadedAt.UnixMicro()))
	return buf
}

// makeChunkKey generates a composite key for a chunk row.
// Format: prefix:documentID:index, with the index in BigEndian so a prefix
// scan yields chunks in index order.
func makeChunkKey(documentID string, index int) []byte {
	prefix := chunkPrefix + ":"
	buf := make([]byte, len(prefix)+len(documentID)+1+4)
	offset := copy(buf, prefix)
	offset += copy(buf[offset:], documentID)
	buf[offset] = ':'
	offset++
	binary.BigEndian.PutUint32(buf[offset:], uint32(index))
	return buf
}

// makeChunkScanPrefix generates the prefix covering all chunk rows of a document.
func makeChunkScanPrefix(documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, documentID))
}

// makeVectorKey generates a key for a vector entry by chunk ID.
// Chunk IDs embed their document ID ("{documentID}#{index}"), so a prefix
// scan with makeVectorScanPrefix covers one document's entries.
func makeVectorKey(chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", vectorPrefix, chunkID))
}

// makeVectorScanPrefix generates the prefix covering a document's vector entries.
func makeVectorScanPrefix(documentID string) []byte {
	return []byte(fmt.Sprintf("%s:%s#", vectorPrefix, documentID))
}
