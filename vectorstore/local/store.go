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

package local

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"

	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
)

// pointNamespace seeds the deterministic UUIDs derived from document IDs.
var pointNamespace = uuid.MustParse("8b540cd0-5a41-4f9d-9f24-6d5f2c7a9e31")

// Store implements vectorstore.Store on an embedded BadgerDB. It serves
// offline builds and tests where no Qdrant instance is reachable; search is
// a full cosine scan, which is fine at context pack scale.
type Store struct {
	db     *badger.DB
	prefix string
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// collectionMeta records the settings a collection was created with.
type collectionMeta struct {
	VectorSize int `json:"vector_size"`
}

// storedPoint is the JSON value kept per point, matching the flat payload
// layout the Qdrant backend writes.
type storedPoint struct {
	PackID     string         `json:"pack_id"`
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Embedding  []float32      `json:"embedding"`
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

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger.With("component", "local_store")
		}
	}
}

// Open opens (or creates) a BadgerDB-backed store at the given directory.
// An empty path opens an in-memory database.
func Open(filePath string, opts ...StoreOption) (*Store, error) {
	var badgerOpts badger.Options

	if filePath == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		badgerOpts = badger.DefaultOptions(filePath)
	}

	badgerOpts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	badgerOpts.Compression = options.None

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:     db,
		prefix: vectorstore.DefaultCollectionPrefix,
		logger: slog.Default().With("component", "local_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureCollection(ctx context.Context, packID string, vectorSize int) (string, error) {
	if packID == "" {
		return "", vectorstore.ErrEmptyPackID
	}
	if vectorSize <= 0 {
		return "", vectorstore.ErrInvalidVectorSize
	}
	name := vectorstore.CollectionName(s.prefix, packID)
	err := s.db.Update(func(tx *badger.Txn) error {
		key := makeCollectionMetaKey(name)
		_, err := tx.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		data, err := json.Marshal(collectionMeta{VectorSize: vectorSize})
		if err != nil {
			return err
		}
		s.logger.Info("created collection", "collection", name, "vector_size", vectorSize)
		return tx.Set(key, data)
	})
	if err != nil {
		return "", err
	}
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
	err = s.db.Update(func(tx *badger.Txn) error {
		meta, err := readCollectionMeta(tx, name)
		if err != nil {
			return err
		}
		if vectorSize != meta.VectorSize {
			return fmt.Errorf("%w: collection %s holds %d-dimensional vectors, upsert declared %d",
				vectorstore.ErrInvalidVectorSize, name, meta.VectorSize, vectorSize)
		}
		for _, rec := range records {
			if len(rec.Embedding) != meta.VectorSize {
				return fmt.Errorf("%w: document %s has a %d-dimensional embedding, collection %s holds %d",
					vectorstore.ErrInvalidVectorSize, rec.DocumentID, len(rec.Embedding), name, meta.VectorSize)
			}
			pointID := rec.PointID
			if pointID == "" {
				pointID = uuid.NewSHA1(pointNamespace, []byte(rec.DocumentID)).String()
			}
			data, err := json.Marshal(storedPoint{
				PackID:     packID,
				DocumentID: rec.DocumentID,
				Text:       rec.Text,
				Metadata:   rec.Metadata,
				Embedding:  rec.Embedding,
			})
			if err != nil {
				return err
			}
			if err := tx.Set(makePointKey(name, pointID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Store) Search(ctx context.Context, packID string, vector []float32, topK int) ([]core.ScoredRecord, error) {
	name := vectorstore.CollectionName(s.prefix, packID)
	if err := s.requireCollection(name); err != nil {
		return nil, err
	}

	var results []core.ScoredRecord
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointScanPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			pointID := pointIDFromKey(item.Key(), name)

			var sp storedPoint
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &sp)
			})
			if err != nil {
				return err
			}
			if len(sp.Embedding) == 0 {
				continue
			}

			results = append(results, core.ScoredRecord{
				EmbeddingRecord: core.EmbeddingRecord{
					DocumentID: sp.DocumentID,
					Text:       sp.Text,
					Metadata:   sp.Metadata,
					PointID:    pointID,
				},
				Score: cosineSimilarity(vector, sp.Embedding),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b core.ScoredRecord) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *Store) Download(ctx context.Context, packID string, limit int, cursor string) ([]core.EmbeddingRecord, string, error) {
	name := vectorstore.CollectionName(s.prefix, packID)
	if err := s.requireCollection(name); err != nil {
		return nil, "", err
	}

	if limit <= 0 {
		limit = 50
	}
	afterID, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	var (
		records    []core.EmbeddingRecord
		nextCursor string
	)
	err = s.db.View(func(tx *badger.Txn) error {
		scanPrefix := makePointScanPrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = scanPrefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		if afterID == "" {
			iter.Rewind()
		} else {
			// Keys are sorted, so resuming is a seek past the last
			// point of the previous page.
			iter.Seek(append(makePointKey(name, afterID), 0x00))
		}

		for ; iter.Valid(); iter.Next() {
			if len(records) == limit {
				nextCursor = encodeCursor(records[len(records)-1].PointID)
				return nil
			}
			item := iter.Item()
			pointID := pointIDFromKey(item.Key(), name)

			var sp storedPoint
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &sp)
			})
			if err != nil {
				return err
			}

			records = append(records, core.EmbeddingRecord{
				DocumentID: sp.DocumentID,
				Text:       sp.Text,
				Metadata:   sp.Metadata,
				Embedding:  sp.Embedding,
				PointID:    pointID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return records, nextCursor, nil
}

func (s *Store) DeleteCollection(ctx context.Context, packID string) error {
	name := vectorstore.CollectionName(s.prefix, packID)
	return s.db.Update(func(tx *badger.Txn) error {
		var keys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointScanPrefix(name)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		err := tx.Delete(makeCollectionMetaKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// readCollectionMeta loads a collection's creation-time settings inside an
// open transaction.
func readCollectionMeta(tx *badger.Txn, name string) (collectionMeta, error) {
	var meta collectionMeta
	item, err := tx.Get(makeCollectionMetaKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return meta, fmt.Errorf("%w: collection %s", vectorstore.ErrPackNotFound, name)
		}
		return meta, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	return meta, err
}

func (s *Store) requireCollection(name string) error {
	return s.db.View(func(tx *badger.Txn) error {
		_, err := tx.Get(makeCollectionMetaKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: collection %s", vectorstore.ErrPackNotFound, name)
		}
		return err
	})
}

func pointIDFromKey(key []byte, collection string) string {
	return string(key[len(makePointScanPrefix(collection)):])
}

func encodeCursor(pointID string) string {
	return base64.URLEncoding.EncodeToString([]byte(pointID))
}

func decodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("invalid download cursor: %w", err)
	}
	return string(data), nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths compare over the shorter prefix.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ vectorstore.Store = (*Store)(nil)
