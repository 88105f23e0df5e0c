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

package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/CC-ZeroSignal-AI/cognit-edge/ai"
	"github.com/CC-ZeroSignal-AI/cognit-edge/chunker"
	"github.com/CC-ZeroSignal-AI/cognit-edge/config"
	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
)

// Fetcher produces the raw document for one source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*core.SourceDocument, error)
}

// PackRegistry is the registry surface the pipeline needs: replace a
// pack's entry after a run and list entries for the aliasing guard.
type PackRegistry interface {
	Upsert(ctx context.Context, meta core.PackMetadata) error
	List(ctx context.Context) ([]core.PackMetadata, error)
}

// Pipeline builds one context pack: fetch each source, chunk, summarize,
// embed, upsert, then replace the pack's registry entry.
type Pipeline struct {
	fetcher    Fetcher
	chunker    *chunker.TextChunker
	summarizer ai.Summarizer
	embedder   *ai.EmbeddingService
	store      vectorstore.Store
	registry   PackRegistry

	pool        *ants.Pool
	logger      *slog.Logger
	outputPath  string
	dryRun      bool
	clean       bool
	packID      string
	maxAttempts int
	baseDelay   time.Duration
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the summarization worker pool size.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger != nil {
			p.logger = logger.With("component", "pipeline")
		}
		return nil
	}
}

// WithOutputPath writes the processed chunks to a JSON file before upload.
func WithOutputPath(path string) Option {
	return func(p *Pipeline) error {
		p.outputPath = path
		return nil
	}
}

// WithDryRun processes and exports chunks without uploading or touching
// the registry.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) error {
		p.dryRun = dryRun
		return nil
	}
}

// WithClean deletes the pack's existing collection before uploading.
// Ignored on dry runs.
func WithClean(clean bool) Option {
	return func(p *Pipeline) error {
		p.clean = clean
		return nil
	}
}

// WithPackIDOverride replaces the pack_id from the config for this run.
func WithPackIDOverride(packID string) Option {
	return func(p *Pipeline) error {
		p.packID = packID
		return nil
	}
}

// WithRetry sets the per-batch upload retry policy.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
		return nil
	}
}

// NewPipeline creates an ingestion pipeline. The embedding service and
// registry may be nil only when every run is a dry run.
func NewPipeline(
	fetcher Fetcher,
	textChunker *chunker.TextChunker,
	summarizer ai.Summarizer,
	embedder *ai.EmbeddingService,
	store vectorstore.Store,
	registry PackRegistry,
	opts ...Option,
) (*Pipeline, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if textChunker == nil {
		return nil, ErrChunkerRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}
	if summarizer == nil {
		summarizer = ai.NopSummarizer{}
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		fetcher:     fetcher,
		chunker:     textChunker,
		summarizer:  summarizer,
		embedder:    embedder,
		store:       store,
		registry:    registry,
		pool:        pool,
		logger:      slog.Default().With("component", "pipeline"),
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	if !p.dryRun {
		if p.embedder == nil {
			p.Release()
			return nil, ErrEmbedderRequired
		}
		if p.registry == nil {
			p.Release()
			return nil, ErrRegistryRequired
		}
	}

	return p, nil
}

// Run executes the full build for one pack config and returns every chunk
// payload it produced, in source order then split order.
func (p *Pipeline) Run(ctx context.Context, cfg *config.PackConfig) ([]core.ChunkPayload, error) {
	packID := p.packID
	if packID == "" {
		packID = cfg.PackID
	}

	if len(cfg.Sources) > core.MaxSourcesPerPack {
		return nil, fmt.Errorf("%w: %d sources", core.ErrTooManySources, len(cfg.Sources))
	}

	if p.clean && !p.dryRun {
		p.logger.Info("clean: deleting existing collection", "pack_id", packID)
		if err := p.store.DeleteCollection(ctx, packID); err != nil {
			return nil, fmt.Errorf("clean collection: %w", err)
		}
	}

	var aggregated []core.ChunkPayload
	for sourceIndex, source := range cfg.Sources {
		doc, err := p.fetcher.Fetch(ctx, source.URL)
		if err != nil {
			return nil, fmt.Errorf("fetch source %d (%s): %w", sourceIndex, source.URL, err)
		}

		baseMetadata := map[string]any{}
		for k, v := range cfg.DefaultMetadata {
			baseMetadata[k] = v
		}
		for k, v := range source.Metadata {
			baseMetadata[k] = v
		}
		baseMetadata["source_url"] = doc.URL
		if source.Title != "" {
			baseMetadata["source_title"] = source.Title
		} else {
			baseMetadata["source_title"] = doc.Title
		}

		payloads, err := p.processSource(ctx, doc, packID, sourceIndex, baseMetadata, cfg.SummaryMaxWords)
		if err != nil {
			return nil, err
		}
		aggregated = append(aggregated, payloads...)
	}

	if p.outputPath != "" {
		if err := p.export(aggregated); err != nil {
			return nil, err
		}
	}

	if p.dryRun {
		p.logger.Info("dry run enabled, skipping upload", "pack_id", packID, "chunks", len(aggregated))
		return aggregated, nil
	}

	if err := p.guardAliasing(ctx, packID); err != nil {
		return nil, err
	}
	if err := p.upload(ctx, packID, aggregated, cfg.BatchSize); err != nil {
		return nil, err
	}
	if err := p.reportMetadata(ctx, packID, aggregated, cfg); err != nil {
		return nil, err
	}

	return aggregated, nil
}

// processSource chunks one fetched document and summarizes the chunks
// concurrently. Chunk order and IDs are fixed by index before any work is
// submitted, so pool scheduling never affects output order.
func (p *Pipeline) processSource(ctx context.Context, doc *core.SourceDocument, packID string, sourceIndex int, baseMetadata map[string]any, maxWords int) ([]core.ChunkPayload, error) {
	chunks := p.chunker.Split(doc.Text)
	if len(chunks) > core.MaxChunksPerSource {
		return nil, fmt.Errorf("%w: %d chunks from %s", core.ErrTooManyChunks, len(chunks), doc.URL)
	}

	avg := 0
	if len(chunks) > 0 {
		total := 0
		for _, chunk := range chunks {
			total += len(chunk)
		}
		avg = total / len(chunks)
	}
	p.logger.Info("split source", "url", doc.URL, "chunks", len(chunks), "avg_chars", avg)

	summaries := make([]string, len(chunks))
	var wg sync.WaitGroup
	for i, chunkText := range chunks {
		i, chunkText := i, chunkText
		wg.Add(1)
		task := func() {
			defer wg.Done()
			summaries[i] = p.summarize(ctx, chunkText, maxWords)
		}
		if err := p.pool.Submit(task); err != nil {
			// pool unavailable, do the work inline
			task()
		}
	}
	wg.Wait()

	payloads := make([]core.ChunkPayload, 0, len(chunks))
	for chunkIndex, chunkText := range chunks {
		if err := core.ValidateChunkCoordinates(sourceIndex, chunkIndex); err != nil {
			return nil, err
		}

		metadata := map[string]any{}
		for k, v := range baseMetadata {
			metadata[k] = v
		}
		metadata["chunk_index"] = chunkIndex
		metadata["original_char_count"] = len(chunkText)

		document, err := core.NewDocumentChunk(
			core.ChunkDocumentID(packID, sourceIndex, chunkIndex),
			summaries[chunkIndex],
			metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("source %d chunk %d: %w", sourceIndex, chunkIndex, err)
		}
		payloads = append(payloads, core.ChunkPayload{
			Document:       document,
			OriginalLength: len(chunkText),
		})
	}
	return payloads, nil
}

// summarize is best-effort: any summarizer failure or empty result falls
// back to the original chunk text.
func (p *Pipeline) summarize(ctx context.Context, text string, maxWords int) string {
	summary, err := p.summarizer.Summarize(ctx, text, maxWords)
	if err != nil {
		p.logger.Warn("summarization failed, using original text", "error", err)
		return text
	}
	if summary == "" {
		return text
	}
	return summary
}

// guardAliasing rejects the run when a different registered pack would
// collide with this pack's collection after sanitization.
func (p *Pipeline) guardAliasing(ctx context.Context, packID string) error {
	entries, err := p.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("aliasing guard: %w", err)
	}
	sanitized := vectorstore.SanitizePackID(packID)
	for _, entry := range entries {
		if entry.PackID != packID && vectorstore.SanitizePackID(entry.PackID) == sanitized {
			return fmt.Errorf("%w: %q collides with registered pack %q", ErrCollectionAliased, packID, entry.PackID)
		}
	}
	return nil
}

// upload embeds and upserts payloads in config-sized batches. Each batch
// is retried as a unit; deterministic point IDs make the retries safe.
func (p *Pipeline) upload(ctx context.Context, packID string, payloads []core.ChunkPayload, batchSize int) error {
	if len(payloads) == 0 {
		p.logger.Info("no chunks to upload", "pack_id", packID)
		return nil
	}

	if batchSize < 1 {
		batchSize = 16
	}

	vectorSize, err := p.embedder.VectorSize(ctx)
	if err != nil {
		return fmt.Errorf("resolve vector size: %w", err)
	}

	p.logger.Info("uploading chunks", "pack_id", packID, "chunks", len(payloads), "batch_size", batchSize)
	for start := 0; start < len(payloads); start += batchSize {
		end := start + batchSize
		if end > len(payloads) {
			end = len(payloads)
		}
		batch := payloads[start:end]

		err := RetryWithBackoff(ctx, func() error {
			texts := make([]string, len(batch))
			for i, payload := range batch {
				texts[i] = payload.Document.Text
			}
			vectors, err := p.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
			}

			records := make([]core.EmbeddingRecord, len(batch))
			for i, payload := range batch {
				records[i] = core.EmbeddingRecord{
					DocumentID: payload.Document.DocumentID,
					Text:       payload.Document.Text,
					Embedding:  vectors[i],
					Metadata:   payload.Document.Metadata,
				}
			}
			stored, err := p.store.Upsert(ctx, packID, records, vectorSize)
			if err != nil {
				return fmt.Errorf("upsert batch: %w", err)
			}
			p.logger.Info("stored batch", "pack_id", packID, "stored", stored)
			return nil
		}, p.maxAttempts, p.baseDelay)
		if err != nil {
			return fmt.Errorf("batch starting at chunk %d: %w", start, err)
		}
	}
	return nil
}

// reportMetadata aggregates topic counts and source URLs from the run's
// payloads and fully replaces the pack's registry entry.
func (p *Pipeline) reportMetadata(ctx context.Context, packID string, payloads []core.ChunkPayload, cfg *config.PackConfig) error {
	if len(payloads) == 0 {
		p.logger.Info("no payloads to report", "pack_id", packID)
		return nil
	}

	topicCounts := map[string]int{}
	urlSet := map[string]bool{}
	for _, payload := range payloads {
		topic := "unspecified"
		if v, ok := payload.Document.Metadata["topic"]; ok && v != nil && v != "" {
			topic = fmt.Sprint(v)
		}
		topicCounts[topic]++
		if v, ok := payload.Document.Metadata["source_url"].(string); ok && v != "" {
			urlSet[v] = true
		}
	}

	topics := make([]core.TopicStat, 0, len(topicCounts))
	for name, count := range topicCounts {
		topics = append(topics, core.TopicStat{Name: name, DocumentCount: count})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })

	sourceURLs := make([]string, 0, len(urlSet))
	for url := range urlSet {
		sourceURLs = append(sourceURLs, url)
	}
	sort.Strings(sourceURLs)

	packMeta := map[string]any{
		"default_metadata": cfg.DefaultMetadata,
		"chunk_size":       cfg.ChunkSize,
		"chunk_overlap":    cfg.ChunkOverlap,
	}
	if cfg.SummarizationEnabled {
		packMeta["summary_model"] = cfg.SummaryModel
	} else {
		packMeta["summary_model"] = nil
	}

	return p.registry.Upsert(ctx, core.PackMetadata{
		PackID:         packID,
		TotalDocuments: len(payloads),
		Topics:         topics,
		SourceURLs:     sourceURLs,
		Metadata:       packMeta,
	})
}

// export writes the chunk payloads as indented JSON. Calling it without a
// configured output path is a programming error.
func (p *Pipeline) export(payloads []core.ChunkPayload) error {
	if p.outputPath == "" {
		panic("ingestion: export called without an output path")
	}

	type exportedChunk struct {
		DocumentID        string         `json:"document_id"`
		Text              string         `json:"text"`
		Metadata          map[string]any `json:"metadata"`
		OriginalCharCount int            `json:"original_char_count"`
	}
	output := make([]exportedChunk, len(payloads))
	for i, payload := range payloads {
		output[i] = exportedChunk{
			DocumentID:        payload.Document.DocumentID,
			Text:              payload.Document.Text,
			Metadata:          payload.Document.Metadata,
			OriginalCharCount: payload.OriginalLength,
		}
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("export chunks: %w", err)
	}
	if dir := filepath.Dir(p.outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("export chunks: %w", err)
		}
	}
	if err := os.WriteFile(p.outputPath, data, 0644); err != nil {
		return fmt.Errorf("export chunks: %w", err)
	}
	p.logger.Info("wrote chunks to disk", "path", p.outputPath, "chunks", len(payloads))
	return nil
}

// Release frees the worker pool. The pipeline must not be used after.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
