package ai

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns fixed-width vectors and counts calls.
type stubEmbedder struct {
	dim   int
	calls atomic.Int64
}

func (s *stubEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	return make([]float32, s.dim), nil
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, s.dim)
	}
	return vectors, nil
}

func TestNewEmbeddingService_RequiresFactory(t *testing.T) {
	_, err := NewEmbeddingService(nil, nil)
	assert.ErrorIs(t, err, ErrFactoryRequired)
}

func TestEmbeddingService_LazyInit(t *testing.T) {
	var created atomic.Int64
	service, err := NewEmbeddingService(func() (Embedder, error) {
		created.Add(1)
		return &stubEmbedder{dim: 8}, nil
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(0), created.Load(), "factory should not run before first use")

	_, err = service.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Load())

	_, err = service.EmbedText(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Load(), "factory should run exactly once")
}

func TestEmbeddingService_ConcurrentInitOnce(t *testing.T) {
	var created atomic.Int64
	service, err := NewEmbeddingService(func() (Embedder, error) {
		created.Add(1)
		return &stubEmbedder{dim: 4}, nil
	}, nil)
	require.NoError(t, err)

	const goroutines = 32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := service.EmbedText(context.Background(), "race")
			assert.NoError(t, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), created.Load(), "concurrent first use must initialize exactly once")
}

func TestEmbeddingService_FactoryErrorNotCached(t *testing.T) {
	attempts := 0
	service, err := NewEmbeddingService(func() (Embedder, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("model download failed")
		}
		return &stubEmbedder{dim: 4}, nil
	}, nil)
	require.NoError(t, err)

	_, err = service.EmbedText(context.Background(), "first")
	require.Error(t, err)

	_, err = service.EmbedText(context.Background(), "second")
	require.NoError(t, err, "a later call should retry initialization")
	assert.Equal(t, 2, attempts)
}

func TestEmbeddingService_VectorSize(t *testing.T) {
	stub := &stubEmbedder{dim: 384}
	service, err := NewEmbeddingService(func() (Embedder, error) {
		return stub, nil
	}, nil)
	require.NoError(t, err)

	size, err := service.VectorSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 384, size)

	probes := stub.calls.Load()
	size, err = service.VectorSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 384, size)
	assert.Equal(t, probes, stub.calls.Load(), "cached size should not probe again")
}

func TestEmbeddingService_VectorSizeWithoutPriorEmbed(t *testing.T) {
	// VectorSize must be derivable before any caller-initiated embed.
	service, err := NewEmbeddingService(func() (Embedder, error) {
		return &stubEmbedder{dim: 16}, nil
	}, nil)
	require.NoError(t, err)

	size, err := service.VectorSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, size)
}
