package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// MaxSourcesPerPack and MaxChunksPerSource bound the fixed-width document ID
// scheme. Runs exceeding either bound are rejected instead of producing
// colliding IDs.
const (
	MaxSourcesPerPack  = 100
	MaxChunksPerSource = 10000
)

// ChunkDocumentID derives the deterministic document identifier for a chunk:
// "{pack_id}-{source_index:02d}-{chunk_index:04d}". The same (pack, source,
// chunk) coordinates always produce the same ID, so re-running a pipeline is
// idempotent at the point level.
func ChunkDocumentID(packID string, sourceIndex, chunkIndex int) string {
	return fmt.Sprintf("%s-%02d-%04d", packID, sourceIndex, chunkIndex)
}

// PackPointID generates a deterministic 64-bit point identifier from a pack ID
// using BLAKE2b hashing. The registry uses it as the canonical point key for
// both writes and reads.
func PackPointID(packID string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(packID))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// SourceDocument is the raw output of a source fetch. Ephemeral, produced
// once per source and discarded after chunking.
type SourceDocument struct {
	URL   string
	Title string
	Text  string
}

// DocumentChunk is a single unit of pack content: one chunk of text with its
// identity and metadata. Chunks are immutable once built and consumed exactly
// once by embedding and upsert.
type DocumentChunk struct {
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
}

// ChunkPayload pairs a DocumentChunk with the character count of the text
// before summarization. Used only for local export and logging; never
// persisted to the index.
type ChunkPayload struct {
	Document       DocumentChunk `json:"document"`
	OriginalLength int           `json:"original_length"`
}

// EmbeddingRecord is a chunk ready for upsert: text plus its embedding vector.
// PointID is optional; the store derives one from DocumentID when empty.
type EmbeddingRecord struct {
	DocumentID string
	Text       string
	Embedding  []float32
	Metadata   map[string]any
	PointID    string
}

// ScoredRecord is a search hit: the stored record plus a relevance score.
type ScoredRecord struct {
	EmbeddingRecord
	Score float64
}

// TopicStat counts the documents attributed to one topic within a pack.
type TopicStat struct {
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
}

// PackMetadata is the registry entry for one pack. One entry per pack,
// created on first ingestion and fully overwritten (never merged) on every
// subsequent run.
type PackMetadata struct {
	PackID         string         `json:"pack_id"`
	TotalDocuments int            `json:"total_documents"`
	Topics         []TopicStat    `json:"topics"`
	SourceURLs     []string       `json:"source_urls"`
	Metadata       map[string]any `json:"metadata"`
	LastIngestedAt time.Time      `json:"last_ingested_at"`
}
