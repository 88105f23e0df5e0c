package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CC-ZeroSignal-AI/cognit-edge/ai"
	"github.com/CC-ZeroSignal-AI/cognit-edge/ai/mock"
	"github.com/CC-ZeroSignal-AI/cognit-edge/chunker"
	"github.com/CC-ZeroSignal-AI/cognit-edge/config"
	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore/local"
)

type fakeFetcher struct {
	docs map[string]*core.SourceDocument
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*core.SourceDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[url]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}
	return doc, nil
}

// flakyStore fails the first n Upsert calls, then delegates.
type flakyStore struct {
	vectorstore.Store
	failures int
	calls    int
}

func (f *flakyStore) Upsert(ctx context.Context, packID string, records []core.EmbeddingRecord, vectorSize int) (int, error) {
	f.calls++
	if f.calls <= f.failures {
		return 0, errors.New("transient upsert failure")
	}
	return f.Store.Upsert(ctx, packID, records, vectorSize)
}

func newTestStore(t *testing.T) *local.Store {
	t.Helper()
	store, err := local.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestEmbedder(t *testing.T) *ai.EmbeddingService {
	t.Helper()
	svc, err := ai.NewEmbeddingService(func() (ai.Embedder, error) {
		return &mock.MockEmbedder{Dimension: 8}, nil
	}, nil)
	require.NoError(t, err)
	return svc
}

// survivalText is just under 2000 characters and splits into exactly three
// chunks at size 900 / overlap 150.
func survivalText() string {
	return strings.TrimSpace(strings.Repeat("abcd ", 400))
}

func survivalConfig() *config.PackConfig {
	cfg, err := config.ParsePackConfig([]byte(`
pack_id: survival-101
default_metadata:
  topic: survival
sources:
  - url: https://example.com/survival
    title: Survival Basics
`))
	if err != nil {
		panic(err)
	}
	return cfg
}

func survivalFetcher() *fakeFetcher {
	return &fakeFetcher{docs: map[string]*core.SourceDocument{
		"https://example.com/survival": {
			URL:   "https://example.com/survival",
			Title: "Survival Basics (html title)",
			Text:  survivalText(),
		},
	}}
}

func TestRunEndToEnd(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)

	pipeline, err := NewPipeline(
		survivalFetcher(),
		chunker.New(900, 150),
		nil,
		newTestEmbedder(t),
		store,
		reg,
		WithRetry(1, time.Millisecond),
	)
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	payloads, err := pipeline.Run(ctx, survivalConfig())
	require.NoError(t, err)
	require.Len(t, payloads, 3)

	for i, payload := range payloads {
		assert.Equal(t, fmt.Sprintf("survival-101-00-%04d", i), payload.Document.DocumentID)
		assert.Equal(t, i, payload.Document.Metadata["chunk_index"])
		assert.Equal(t, payload.OriginalLength, payload.Document.Metadata["original_char_count"])
		assert.Equal(t, "https://example.com/survival", payload.Document.Metadata["source_url"])
		assert.Equal(t, "Survival Basics", payload.Document.Metadata["source_title"])
		assert.Equal(t, "survival", payload.Document.Metadata["topic"])
		assert.LessOrEqual(t, len(payload.Document.Text), 900)
	}

	// every chunk landed in the pack's collection with its vector
	records, cursor, err := store.Download(ctx, "survival-101", 100, "")
	require.NoError(t, err)
	assert.Empty(t, cursor)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Len(t, rec.Embedding, 8)
	}

	// registry entry fully describes the run
	meta, err := reg.Get(ctx, "survival-101")
	require.NoError(t, err)
	assert.Equal(t, 3, meta.TotalDocuments)
	require.Len(t, meta.Topics, 1)
	assert.Equal(t, "survival", meta.Topics[0].Name)
	assert.Equal(t, 3, meta.Topics[0].DocumentCount)
	assert.Equal(t, []string{"https://example.com/survival"}, meta.SourceURLs)
	assert.EqualValues(t, 900, meta.Metadata["chunk_size"])
	assert.Equal(t, "gpt-4o-mini", meta.Metadata["summary_model"])
	assert.False(t, meta.LastIngestedAt.IsZero())
}

func TestRunIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)

	pipeline, err := NewPipeline(survivalFetcher(), chunker.New(900, 150), nil, newTestEmbedder(t), store, reg)
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	_, err = pipeline.Run(ctx, survivalConfig())
	require.NoError(t, err)
	_, err = pipeline.Run(ctx, survivalConfig())
	require.NoError(t, err)

	records, _, err := store.Download(ctx, "survival-101", 100, "")
	require.NoError(t, err)
	assert.Len(t, records, 3, "re-running the same pack must not duplicate points")

	meta, err := reg.Get(ctx, "survival-101")
	require.NoError(t, err)
	assert.Equal(t, 3, meta.TotalDocuments)
}

func TestRunDryRunSkipsUploadAndRegistry(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)

	pipeline, err := NewPipeline(survivalFetcher(), chunker.New(900, 150), nil, nil, store, reg, WithDryRun(true))
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	payloads, err := pipeline.Run(ctx, survivalConfig())
	require.NoError(t, err)
	assert.Len(t, payloads, 3)

	_, _, err = store.Download(ctx, "survival-101", 100, "")
	assert.ErrorIs(t, err, vectorstore.ErrPackNotFound, "dry run must not create the collection")

	entries, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run must not touch the registry")
}

func TestRunExportsJSON(t *testing.T) {
	store := newTestStore(t)
	outputPath := filepath.Join(t.TempDir(), "export", "chunks.json")

	pipeline, err := NewPipeline(
		survivalFetcher(), chunker.New(900, 150), nil, nil, store, nil,
		WithDryRun(true),
		WithOutputPath(outputPath),
	)
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.Run(context.Background(), survivalConfig())
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var exported []struct {
		DocumentID        string         `json:"document_id"`
		Text              string         `json:"text"`
		Metadata          map[string]any `json:"metadata"`
		OriginalCharCount int            `json:"original_char_count"`
	}
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 3)
	assert.Equal(t, "survival-101-00-0000", exported[0].DocumentID)
	assert.Positive(t, exported[0].OriginalCharCount)
}

func TestRunSummarizerReplacesText(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)

	provider := mock.NewMockProviderWithServices(
		&mock.MockEmbedder{Dimension: 8},
		&mock.MockSummarizer{
			SummarizeFunc: func(ctx context.Context, text string, maxWords int) (string, error) {
				return "summary:" + text[:10], nil
			},
		},
	)
	embedder, err := ai.NewEmbeddingService(func() (ai.Embedder, error) {
		return provider.Embedder(), nil
	}, nil)
	require.NoError(t, err)

	pipeline, err := NewPipeline(survivalFetcher(), chunker.New(900, 150), provider.Summarizer(), embedder, store, reg)
	require.NoError(t, err)
	defer pipeline.Release()

	payloads, err := pipeline.Run(context.Background(), survivalConfig())
	require.NoError(t, err)
	for _, payload := range payloads {
		assert.True(t, strings.HasPrefix(payload.Document.Text, "summary:"))
		assert.Greater(t, payload.OriginalLength, len(payload.Document.Text),
			"original length must reflect the pre-summary chunk")
	}
	assert.Equal(t, 3, provider.(*mock.MockProvider).GetMockSummarizer().CallCount())
}

func TestRunSummarizerFailureDegradesToOriginal(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)

	summarizer := &mock.MockSummarizer{
		SummarizeFunc: func(ctx context.Context, text string, maxWords int) (string, error) {
			return "", errors.New("llm unavailable")
		},
	}

	pipeline, err := NewPipeline(survivalFetcher(), chunker.New(900, 150), summarizer, newTestEmbedder(t), store, reg)
	require.NoError(t, err)
	defer pipeline.Release()

	payloads, err := pipeline.Run(context.Background(), survivalConfig())
	require.NoError(t, err, "summarizer failures must never abort the run")
	for _, payload := range payloads {
		assert.Equal(t, payload.OriginalLength, len(payload.Document.Text))
	}
}

func TestRunAliasingGuard(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)
	ctx := context.Background()

	// "demo pack" and "demo_pack" sanitize to the same collection
	require.NoError(t, reg.Upsert(ctx, core.PackMetadata{PackID: "demo pack", TotalDocuments: 1}))

	cfg, err := config.ParsePackConfig([]byte(`
pack_id: demo_pack
sources:
  - url: https://example.com/survival
`))
	require.NoError(t, err)

	pipeline, err := NewPipeline(survivalFetcher(), chunker.New(900, 150), nil, newTestEmbedder(t), store, reg)
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.Run(ctx, cfg)
	assert.ErrorIs(t, err, ErrCollectionAliased)
}

func TestRunCleanRemovesStalePoints(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)
	ctx := context.Background()

	// stale point from a previous, differently-shaped run
	_, err := store.Upsert(ctx, "survival-101", []core.EmbeddingRecord{
		{DocumentID: "survival-101-99-0000", Text: "stale", Embedding: []float32{1, 2, 3, 4, 5, 6, 7, 8}},
	}, 8)
	require.NoError(t, err)

	pipeline, err := NewPipeline(survivalFetcher(), chunker.New(900, 150), nil, newTestEmbedder(t), store, reg, WithClean(true))
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.Run(ctx, survivalConfig())
	require.NoError(t, err)

	records, _, err := store.Download(ctx, "survival-101", 100, "")
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.NotEqual(t, "survival-101-99-0000", rec.DocumentID)
	}
}

func TestRunRetriesFlakyUpserts(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)
	flaky := &flakyStore{Store: store, failures: 2}

	pipeline, err := NewPipeline(
		survivalFetcher(), chunker.New(900, 150), nil, newTestEmbedder(t), flaky, reg,
		WithRetry(3, time.Millisecond),
	)
	require.NoError(t, err)
	defer pipeline.Release()

	ctx := context.Background()
	_, err = pipeline.Run(ctx, survivalConfig())
	require.NoError(t, err, "bounded retry must absorb transient failures")

	records, _, err := store.Download(ctx, "survival-101", 100, "")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestRunAbortsWhenRetriesExhausted(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)
	flaky := &flakyStore{Store: store, failures: 100}

	pipeline, err := NewPipeline(
		survivalFetcher(), chunker.New(900, 150), nil, newTestEmbedder(t), flaky, reg,
		WithRetry(2, time.Millisecond),
	)
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.Run(context.Background(), survivalConfig())
	require.Error(t, err)

	// the registry must not claim a run that never landed
	_, err = reg.Get(context.Background(), "survival-101")
	assert.ErrorIs(t, err, vectorstore.ErrPackNotFound)
}

func TestRunRejectsTooManySources(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)

	var sb strings.Builder
	sb.WriteString("pack_id: demo\nsources:\n")
	for i := 0; i <= core.MaxSourcesPerPack; i++ {
		fmt.Fprintf(&sb, "  - url: https://example.com/%d\n", i)
	}
	cfg, err := config.ParsePackConfig([]byte(sb.String()))
	require.NoError(t, err)

	pipeline, err := NewPipeline(survivalFetcher(), chunker.New(900, 150), nil, newTestEmbedder(t), store, reg)
	require.NoError(t, err)
	defer pipeline.Release()

	_, err = pipeline.Run(context.Background(), cfg)
	assert.ErrorIs(t, err, core.ErrTooManySources)
}

func TestRunPackIDOverride(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)

	pipeline, err := NewPipeline(
		survivalFetcher(), chunker.New(900, 150), nil, newTestEmbedder(t), store, reg,
		WithPackIDOverride("override-pack"),
	)
	require.NoError(t, err)
	defer pipeline.Release()

	payloads, err := pipeline.Run(context.Background(), survivalConfig())
	require.NoError(t, err)
	assert.Equal(t, "override-pack-00-0000", payloads[0].Document.DocumentID)

	_, err = reg.Get(context.Background(), "override-pack")
	assert.NoError(t, err)
}

func TestNewPipelineValidation(t *testing.T) {
	store := newTestStore(t)
	reg := local.NewRegistry(store)
	embedder := newTestEmbedder(t)

	_, err := NewPipeline(nil, chunker.New(900, 150), nil, embedder, store, reg)
	assert.ErrorIs(t, err, ErrFetcherRequired)

	_, err = NewPipeline(survivalFetcher(), nil, nil, embedder, store, reg)
	assert.ErrorIs(t, err, ErrChunkerRequired)

	_, err = NewPipeline(survivalFetcher(), chunker.New(900, 150), nil, embedder, nil, reg)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewPipeline(survivalFetcher(), chunker.New(900, 150), nil, nil, store, reg)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewPipeline(survivalFetcher(), chunker.New(900, 150), nil, embedder, store, nil)
	assert.ErrorIs(t, err, ErrRegistryRequired)
}
