package ingestion

import "errors"

var (
	// ErrFetcherRequired is returned when a source fetcher is not provided.
	ErrFetcherRequired = errors.New("fetcher required")

	// ErrChunkerRequired is returned when a text chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when an embedding service is not provided
	// for a run that uploads.
	ErrEmbedderRequired = errors.New("embedding service required")

	// ErrRegistryRequired is returned when a pack registry is not provided
	// for a run that uploads.
	ErrRegistryRequired = errors.New("pack registry required")

	// ErrInvalidMaxAttempts is returned when retry is configured with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrCollectionAliased is returned when a different registered pack
	// sanitizes to this pack's collection name.
	ErrCollectionAliased = errors.New("pack id aliases an existing pack's collection")
)
