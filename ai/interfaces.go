package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Summarizer condenses chunk text to fit within a word budget.
// Implementations must be thread-safe for concurrent use.
//
// Callers treat summarization as best-effort: on error the original text is
// used unchanged, so a failing summarizer degrades output quality but never
// aborts an ingestion run.
type Summarizer interface {
	// Summarize returns a condensed version of text of at most maxWords words.
	Summarize(ctx context.Context, text string, maxWords int) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and Summarizer instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Summarizer returns the text condensing service.
	// The returned Summarizer is safe for concurrent use.
	Summarizer() Summarizer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// NopSummarizer returns text unchanged. Used when summarization is disabled.
type NopSummarizer struct{}

// Summarize returns the input text as-is.
func (NopSummarizer) Summarize(_ context.Context, text string, _ int) (string, error) {
	return text, nil
}
