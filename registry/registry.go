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

package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore/qdrant"
)

// DefaultCollection is the collection holding one metadata point per pack.
const DefaultCollection = "pack_registry"

// The registry stores no real vectors; points carry a one-dimensional
// placeholder so they fit the points API.
const registryVectorSize = 1

const listPageSize = 100

// PointsClient is the subset of the points API the registry needs. The
// Qdrant client satisfies it; tests use fakes.
type PointsClient interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
	CreateCollection(ctx context.Context, collection string, vectorSize int) error
	UpsertPoints(ctx context.Context, collection string, points []qdrant.Point) error
	RetrievePoints(ctx context.Context, collection string, ids []any) ([]qdrant.Point, error)
	ScrollPoints(ctx context.Context, collection string, limit int, offset any) ([]qdrant.Point, any, error)
}

// Registry tracks pack-level metadata in a dedicated collection. Each pack
// owns exactly one point, keyed by a hash of its ID, so every upsert fully
// replaces the previous entry.
type Registry struct {
	client     PointsClient
	collection string
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithCollection overrides the registry collection name.
func WithCollection(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.collection = name
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger.With("component", "registry")
		}
	}
}

// New creates a Registry over the given points client.
func New(client PointsClient, opts ...Option) *Registry {
	r := &Registry{
		client:     client,
		collection: DefaultCollection,
		logger:     slog.Default().With("component", "registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Upsert writes the pack's metadata entry, replacing any previous one.
// A zero LastIngestedAt is stamped with the current time.
func (r *Registry) Upsert(ctx context.Context, meta core.PackMetadata) error {
	if meta.PackID == "" {
		return vectorstore.ErrEmptyPackID
	}
	if err := r.ensureCollection(ctx); err != nil {
		return err
	}
	if meta.LastIngestedAt.IsZero() {
		meta.LastIngestedAt = time.Now().UTC()
	}
	point := qdrant.Point{
		ID:      core.PackPointID(meta.PackID),
		Vector:  []float32{0},
		Payload: metadataToPayload(meta),
	}
	if err := r.client.UpsertPoints(ctx, r.collection, []qdrant.Point{point}); err != nil {
		return fmt.Errorf("registry upsert %s: %w", meta.PackID, err)
	}
	r.logger.Info("registered pack", "pack_id", meta.PackID, "total_documents", meta.TotalDocuments)
	return nil
}

// Get returns the metadata entry for one pack, or ErrPackNotFound.
func (r *Registry) Get(ctx context.Context, packID string) (*core.PackMetadata, error) {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrPackNotFound, packID)
	}
	points, err := r.client.RetrievePoints(ctx, r.collection, []any{core.PackPointID(packID)})
	if err != nil {
		return nil, fmt.Errorf("registry get %s: %w", packID, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrPackNotFound, packID)
	}
	meta := metadataFromPayload(points[0].Payload)
	return &meta, nil
}

// List returns every registered pack. A missing registry collection means
// nothing has been ingested yet and yields an empty slice.
func (r *Registry) List(ctx context.Context) ([]core.PackMetadata, error) {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []core.PackMetadata{}, nil
	}

	entries := []core.PackMetadata{}
	var offset any
	for {
		points, next, err := r.client.ScrollPoints(ctx, r.collection, listPageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("registry list: %w", err)
		}
		for _, p := range points {
			entries = append(entries, metadataFromPayload(p.Payload))
		}
		if next == nil || len(points) == 0 {
			return entries, nil
		}
		offset = next
	}
}

func (r *Registry) ensureCollection(ctx context.Context) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return r.client.CreateCollection(ctx, r.collection, registryVectorSize)
}

func metadataToPayload(meta core.PackMetadata) map[string]any {
	topics := make([]any, len(meta.Topics))
	for i, t := range meta.Topics {
		topics[i] = map[string]any{
			"name":           t.Name,
			"document_count": t.DocumentCount,
		}
	}
	return map[string]any{
		"pack_id":          meta.PackID,
		"total_documents":  meta.TotalDocuments,
		"topics":           topics,
		"source_urls":      meta.SourceURLs,
		"metadata":         meta.Metadata,
		"last_ingested_at": meta.LastIngestedAt.UTC().Format(time.RFC3339),
	}
}

func metadataFromPayload(payload map[string]any) core.PackMetadata {
	meta := core.PackMetadata{
		SourceURLs: []string{},
		Topics:     []core.TopicStat{},
	}
	if v, ok := payload["pack_id"].(string); ok {
		meta.PackID = v
	}
	if v, ok := payload["total_documents"].(float64); ok {
		meta.TotalDocuments = int(v)
	}
	if v, ok := payload["total_documents"].(int); ok {
		meta.TotalDocuments = v
	}
	if urls, ok := payload["source_urls"].([]any); ok {
		for _, u := range urls {
			if s, ok := u.(string); ok {
				meta.SourceURLs = append(meta.SourceURLs, s)
			}
		}
	}
	if topics, ok := payload["topics"].([]any); ok {
		for _, raw := range topics {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			stat := core.TopicStat{}
			if v, ok := entry["name"].(string); ok {
				stat.Name = v
			}
			switch v := entry["document_count"].(type) {
			case float64:
				stat.DocumentCount = int(v)
			case int:
				stat.DocumentCount = v
			}
			meta.Topics = append(meta.Topics, stat)
		}
	}
	if v, ok := payload["metadata"].(map[string]any); ok {
		meta.Metadata = v
	}
	meta.LastIngestedAt = time.Now().UTC()
	if v, ok := payload["last_ingested_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			meta.LastIngestedAt = ts
		}
	}
	return meta
}
