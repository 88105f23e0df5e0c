package vectorstore

import (
	"context"

	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
)

// Store owns the mapping from pack identity to a provisioned vector
// collection. Implementations must be thread-safe and support concurrent
// access; collection-creation races between callers are tolerated as
// idempotent successes, never surfaced as errors.
type Store interface {
	// EnsureCollection provisions the pack's collection if it does not exist
	// and returns its name. Idempotent: existing collections (including ones
	// created concurrently by another caller) are treated as success. The
	// vector dimensionality is fixed at creation time.
	EnsureCollection(ctx context.Context, packID string, vectorSize int) (string, error)

	// Upsert writes pre-embedded records into the pack's collection,
	// provisioning it first if needed. Records without a point ID get a
	// deterministic one derived from their document ID, so re-upserting the
	// same records never duplicates points. Empty input is a no-op returning
	// 0 with no side effects.
	Upsert(ctx context.Context, packID string, records []core.EmbeddingRecord, vectorSize int) (int, error)

	// Search runs a nearest-neighbor query scoped to exactly one pack's
	// collection. Returns ErrPackNotFound when the collection does not
	// exist, distinct from transport failures.
	Search(ctx context.Context, packID string, vector []float32, topK int) ([]core.ScoredRecord, error)

	// Download scans the pack's collection with vectors and payload,
	// paginated by an opaque cursor. An empty cursor starts from the
	// beginning; an empty returned cursor means the scan is exhausted.
	// Passing a returned cursor back resumes exactly where the previous page
	// ended. Returns ErrPackNotFound when the collection does not exist.
	Download(ctx context.Context, packID string, limit int, cursor string) ([]core.EmbeddingRecord, string, error)

	// DeleteCollection removes the pack's collection and all its points.
	// Deleting a collection that does not exist is not an error.
	DeleteCollection(ctx context.Context, packID string) error
}
