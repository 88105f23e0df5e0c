package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
)

const packMetaPrefix = "packmeta"

func makePackMetaKey(packID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", packMetaPrefix, packID))
}

// Registry is a badger-backed pack metadata registry sharing the store's
// database. Entries are fully overwritten per upsert.
type Registry struct {
	db *badger.DB
}

// NewRegistry creates a registry over the store's database.
func NewRegistry(store *Store) *Registry {
	return &Registry{db: store.db}
}

func (r *Registry) Upsert(ctx context.Context, meta core.PackMetadata) error {
	if meta.PackID == "" {
		return vectorstore.ErrEmptyPackID
	}
	if meta.LastIngestedAt.IsZero() {
		meta.LastIngestedAt = time.Now().UTC()
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *badger.Txn) error {
		return tx.Set(makePackMetaKey(meta.PackID), data)
	})
}

func (r *Registry) Get(ctx context.Context, packID string) (*core.PackMetadata, error) {
	var meta core.PackMetadata
	err := r.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makePackMetaKey(packID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", vectorstore.ErrPackNotFound, packID)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r *Registry) List(ctx context.Context) ([]core.PackMetadata, error) {
	entries := []core.PackMetadata{}
	err := r.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(packMetaPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var meta core.PackMetadata
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return err
			}
			entries = append(entries, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
