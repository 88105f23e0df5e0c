package config

import "errors"

var (
	ErrMissingPackID       = errors.New("pack_id is required")
	ErrNoSources           = errors.New("at least one source is required")
	ErrMissingSourceURL    = errors.New("source url is required")
	ErrInvalidChunkSize    = errors.New("chunk_size must be positive")
	ErrOverlapTooLarge     = errors.New("chunk_overlap must be smaller than chunk_size")
	ErrNegativeOverlap     = errors.New("chunk_overlap must not be negative")
	ErrInvalidBatchSize    = errors.New("batch_size must be between 1 and 64")
	ErrInvalidMaxWords     = errors.New("summary_max_words must be positive")
	ErrInvalidStoreBackend = errors.New("store backend must be qdrant or local")
)
