package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrFactoryRequired is returned when an EmbeddingService is built without a factory.
var ErrFactoryRequired = errors.New("embedder factory required")

// EmbedderFactory constructs the underlying embedder. It is invoked at most
// once per EmbeddingService, on first use.
type EmbedderFactory func() (Embedder, error)

// EmbeddingService wraps an expensive-to-initialize embedder behind lazy,
// single-flight initialization. The first caller constructs the model inside
// an exclusive section; concurrent callers wait for it, and once initialized
// every caller reads the embedder without blocking (the model is treated as
// safe for concurrent read-only use after construction).
//
// The vector dimensionality is probed once with a throwaway input and stays
// constant for the lifetime of the service instance.
type EmbeddingService struct {
	factory EmbedderFactory
	logger  *slog.Logger

	mu       sync.Mutex   // guards initialization only
	embedder atomic.Value // holds Embedder once initialized

	sizeMu sync.Mutex
	size   int
}

// NewEmbeddingService creates a lazy embedding service around factory.
func NewEmbeddingService(factory EmbedderFactory, logger *slog.Logger) (*EmbeddingService, error) {
	if factory == nil {
		return nil, ErrFactoryRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingService{
		factory: factory,
		logger:  logger.With("component", "embedding-service"),
	}, nil
}

// model returns the embedder, initializing it on first use. Double-checked:
// the fast path avoids the lock entirely once the embedder exists, and the
// second check under the lock keeps concurrent first callers from
// initializing twice.
func (s *EmbeddingService) model() (Embedder, error) {
	if e, ok := s.embedder.Load().(Embedder); ok {
		return e, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.embedder.Load().(Embedder); ok {
		return e, nil
	}

	s.logger.Info("initializing embedding model")
	embedder, err := s.factory()
	if err != nil {
		s.logger.Error("embedding model initialization failed", "err", err)
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}
	s.embedder.Store(embedder)
	return embedder, nil
}

// EmbedText embeds a single string.
func (s *EmbeddingService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embedder, err := s.model()
	if err != nil {
		return nil, err
	}
	return embedder.EmbedText(ctx, text)
}

// EmbedTexts embeds a batch of strings, preserving input order.
func (s *EmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	embedder, err := s.model()
	if err != nil {
		return nil, err
	}
	return embedder.EmbedTexts(ctx, texts)
}

// VectorSize reports the dimensionality of the embedding vectors. It probes
// the model with a throwaway input on first call and caches the result; the
// value never changes for the lifetime of the service. A failed probe is not
// cached, so a later call may succeed once the backing service recovers.
func (s *EmbeddingService) VectorSize(ctx context.Context) (int, error) {
	s.sizeMu.Lock()
	defer s.sizeMu.Unlock()

	if s.size > 0 {
		return s.size, nil
	}

	vector, err := s.EmbedText(ctx, "test")
	if err != nil {
		return 0, fmt.Errorf("probing vector size: %w", err)
	}
	if len(vector) == 0 {
		return 0, errors.New("embedder returned an empty probe vector")
	}
	s.size = len(vector)
	return s.size, nil
}

var _ Embedder = (*EmbeddingService)(nil)
