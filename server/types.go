package server

import (
	"time"

	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
)

type ingestDocument struct {
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata"`
}

type ingestRequest struct {
	Documents []ingestDocument `json:"documents"`
}

type ingestResponse struct {
	Stored int `json:"stored"`
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

type searchResult struct {
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata"`
}

type downloadItem struct {
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Embedding  []float32      `json:"embedding"`
	Metadata   map[string]any `json:"metadata"`
}

type downloadResponse struct {
	PackID     string         `json:"pack_id"`
	Limit      int            `json:"limit"`
	Offset     *string        `json:"offset"`
	NextOffset *string        `json:"next_offset"`
	Items      []downloadItem `json:"items"`
}

type topicStat struct {
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count"`
}

type packMetadataResponse struct {
	PackID         string         `json:"pack_id"`
	TotalDocuments int            `json:"total_documents"`
	Topics         []topicStat    `json:"topics"`
	SourceURLs     []string       `json:"source_urls"`
	Metadata       map[string]any `json:"metadata"`
	LastIngestedAt string         `json:"last_ingested_at"`
}

type metadataUpsertRequest struct {
	TotalDocuments int            `json:"total_documents"`
	Topics         []topicStat    `json:"topics"`
	SourceURLs     []string       `json:"source_urls"`
	Metadata       map[string]any `json:"metadata"`
}

func metadataResponse(meta core.PackMetadata) packMetadataResponse {
	topics := make([]topicStat, len(meta.Topics))
	for i, t := range meta.Topics {
		topics[i] = topicStat{Name: t.Name, DocumentCount: t.DocumentCount}
	}
	urls := meta.SourceURLs
	if urls == nil {
		urls = []string{}
	}
	metadata := meta.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return packMetadataResponse{
		PackID:         meta.PackID,
		TotalDocuments: meta.TotalDocuments,
		Topics:         topics,
		SourceURLs:     urls,
		Metadata:       metadata,
		LastIngestedAt: meta.LastIngestedAt.UTC().Format(time.RFC3339),
	}
}
