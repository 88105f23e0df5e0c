// Copyright 2025 ZeroSignal AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
)

// pointNamespace seeds the deterministic UUIDs derived from document IDs.
var pointNamespace = uuid.MustParse("8b540cd0-5a41-4f9d-9f24-6d5f2c7a9e31")

// PointIDForDocument returns the stable point UUID for a document ID.
// Upserting the same document twice always hits the same point.
func PointIDForDocument(documentID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(documentID)).String()
}

// Store implements vectorstore.Store on top of a Qdrant Client, mapping
// pack IDs onto prefixed collections.
type Store struct {
	client *Client
	prefix string
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCollectionPrefix overrides the collection name prefix.
func WithCollectionPrefix(prefix string) StoreOption {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithStoreLogger sets the structured logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.With("component", "qdrant_store")
		}
	}
}

// NewStore creates a pack-scoped store over the given client.
func NewStore(client *Client, opts ...StoreOption) *Store {
	s := &Store{
		client: client,
		prefix: vectorstore.DefaultCollectionPrefix,
		logger: slog.Default().With("component", "qdrant_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) EnsureCollection(ctx context.Context, packID string, vectorSize int) (string, error) {
	if packID == "" {
		return "", vectorstore.ErrEmptyPackID
	}
	name := vectorstore.CollectionName(s.prefix, packID)
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return "", err
	}
	if exists {
		return name, nil
	}
	if err := s.client.CreateCollection(ctx, name, vectorSize); err != nil {
		return "", err
	}
	s.logger.Info("created collection", "collection", name, "vector_size", vectorSize)
	return name, nil
}

func (s *Store) Upsert(ctx context.Context, packID string, records []core.EmbeddingRecord, vectorSize int) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	name, err := s.EnsureCollection(ctx, packID, vectorSize)
	if err != nil {
		return 0, err
	}
	points := make([]Point, len(records))
	for i, rec := range records {
		pointID := rec.PointID
		if pointID == "" {
			pointID = PointIDForDocument(rec.DocumentID)
		}
		points[i] = Point{
			ID:      pointID,
			Vector:  rec.Embedding,
			Payload: recordPayload(packID, rec),
		}
	}
	if err := s.client.UpsertPoints(ctx, name, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

func (s *Store) Search(ctx context.Context, packID string, vector []float32, topK int) ([]core.ScoredRecord, error) {
	name := vectorstore.CollectionName(s.prefix, packID)
	hits, err := s.client.SearchPoints(ctx, name, vector, topK)
	if err != nil {
		return nil, err
	}
	results := make([]core.ScoredRecord, 0, len(hits))
	for _, hit := range hits {
		rec := recordFromPayload(hit.Payload)
		rec.PointID = pointIDString(hit.ID)
		results = append(results, core.ScoredRecord{
			EmbeddingRecord: rec,
			Score:           hit.Score,
		})
	}
	return results, nil
}

func (s *Store) Download(ctx context.Context, packID string, limit int, cursor string) ([]core.EmbeddingRecord, string, error) {
	name := vectorstore.CollectionName(s.prefix, packID)
	points, next, err := s.client.ScrollPoints(ctx, name, limit, decodeCursor(cursor))
	if err != nil {
		return nil, "", err
	}
	records := make([]core.EmbeddingRecord, 0, len(points))
	for _, p := range points {
		rec := recordFromPayload(p.Payload)
		rec.PointID = pointIDString(p.ID)
		rec.Embedding = p.Vector
		records = append(records, rec)
	}
	return records, pointIDString(next), nil
}

func (s *Store) DeleteCollection(ctx context.Context, packID string) error {
	name := vectorstore.CollectionName(s.prefix, packID)
	return s.client.DeleteCollection(ctx, name)
}

// recordPayload builds the flat point payload consumed by recordFromPayload.
func recordPayload(packID string, rec core.EmbeddingRecord) map[string]any {
	payload := map[string]any{
		"pack_id":     packID,
		"document_id": rec.DocumentID,
		"text":        rec.Text,
	}
	if len(rec.Metadata) > 0 {
		payload["metadata"] = rec.Metadata
	}
	return payload
}

func recordFromPayload(payload map[string]any) core.EmbeddingRecord {
	var rec core.EmbeddingRecord
	if v, ok := payload["document_id"].(string); ok {
		rec.DocumentID = v
	}
	if v, ok := payload["text"].(string); ok {
		rec.Text = v
	}
	if v, ok := payload["metadata"].(map[string]any); ok {
		rec.Metadata = v
	}
	return rec
}

// pointIDString renders a wire point ID (UUID string or unsigned integer)
// back to its canonical string form. Nil yields the empty string.
func pointIDString(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	default:
		return fmt.Sprint(v)
	}
}

// decodeCursor maps an opaque cursor back to a scroll offset. Numeric
// cursors come from integer point IDs, everything else is a UUID.
func decodeCursor(cursor string) any {
	if cursor == "" {
		return nil
	}
	if n, err := strconv.ParseUint(cursor, 10, 64); err == nil {
		return n
	}
	return cursor
}

var _ vectorstore.Store = (*Store)(nil)
