// Copyright 2025 ZeroSignal AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/CC-ZeroSignal-AI/cognit-edge/ai"
	"github.com/CC-ZeroSignal-AI/cognit-edge/ai/openai"
	"github.com/CC-ZeroSignal-AI/cognit-edge/chunker"
	"github.com/CC-ZeroSignal-AI/cognit-edge/config"
	"github.com/CC-ZeroSignal-AI/cognit-edge/ingestion"
	"github.com/CC-ZeroSignal-AI/cognit-edge/registry"
	"github.com/CC-ZeroSignal-AI/cognit-edge/scrape"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore/local"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore/qdrant"
)

func main() {
	app := &cli.App{
		Name:  "packctl",
		Usage: "Build and upload context packs from web sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Scrape, chunk, embed and upload a context pack",
				Action: buildCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the pack YAML configuration",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write processed chunks to a JSON file",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Process sources without uploading anything",
					},
					&cli.BoolFlag{
						Name:  "no-summary",
						Usage: "Skip chunk summarization even when the config enables it",
					},
					&cli.BoolFlag{
						Name:  "clean",
						Usage: "Delete the pack collection before uploading",
					},
					&cli.StringFlag{
						Name:  "override-pack-id",
						Usage: "Upload under this pack ID instead of the configured one",
					},
					&cli.StringFlag{
						Name:    "store",
						Usage:   "Vector store backend (qdrant or local)",
						Value:   config.BackendQdrant,
						EnvVars: []string{"STORE_BACKEND"},
					},
					&cli.StringFlag{
						Name:    "qdrant-url",
						Usage:   "Qdrant REST endpoint",
						Value:   "http://localhost:6333",
						EnvVars: []string{"QDRANT_URL"},
					},
					&cli.StringFlag{
						Name:    "qdrant-api-key",
						Usage:   "Qdrant API key",
						EnvVars: []string{"QDRANT_API_KEY"},
					},
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to the local store directory (local backend)",
						EnvVars: []string{"LOCAL_STORE_PATH"},
					},
					&cli.StringFlag{
						Name:    "collection-prefix",
						Usage:   "Prefix for pack collection names",
						Value:   vectorstore.DefaultCollectionPrefix,
						EnvVars: []string{"COLLECTION_NAME_PREFIX"},
					},
					&cli.StringFlag{
						Name:    "registry-collection",
						Usage:   "Collection holding pack metadata",
						Value:   registry.DefaultCollection,
						EnvVars: []string{"PACK_REGISTRY_COLLECTION"},
					},
					&cli.StringFlag{
						Name:    "embedding-host",
						Usage:   "Embedding service host URL",
						Value:   "http://localhost:11434/v1",
						EnvVars: []string{"EMBEDDING_HOST"},
					},
					&cli.StringFlag{
						Name:    "embedding-model",
						Usage:   "Embedding model name",
						Value:   "embeddinggemma",
						EnvVars: []string{"EMBEDDING_MODEL"},
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts for each embed and upload batch",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 500 * time.Millisecond,
					},
				},
			},
		},
	}

	// A .env next to the binary is optional.
	_ = godotenv.Load()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildCommand(c *cli.Context) error {
	ctx := context.Background()

	packCfg, err := config.LoadPackConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load pack config: %w", err)
	}
	if c.Bool("no-summary") {
		packCfg.SummarizationEnabled = false
	}
	if err := packCfg.Validate(); err != nil {
		return fmt.Errorf("invalid pack config: %w", err)
	}

	store, packRegistry, closeStore, err := openStore(c)
	if err != nil {
		return err
	}
	defer closeStore()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithSummaryHost(c.String("embedding-host")),
		ai.WithSummaryModel(packCfg.SummaryModel),
		ai.WithSummaryTemperature(packCfg.SummaryTemperature),
		ai.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
	)
	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create AI provider: %w", err)
	}
	defer provider.Close()

	var summarizer ai.Summarizer
	if packCfg.SummarizationEnabled {
		summarizer = provider.Summarizer()
	}

	embedder, err := ai.NewEmbeddingService(func() (ai.Embedder, error) {
		return provider.Embedder(), nil
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}

	scraper := scrape.New(
		scrape.WithTimeout(time.Duration(packCfg.RequestTimeout) * time.Second),
	)

	opts := []ingestion.Option{
		ingestion.WithDryRun(c.Bool("dry-run")),
		ingestion.WithClean(c.Bool("clean")),
		ingestion.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
	}
	if output := c.String("output"); output != "" {
		opts = append(opts, ingestion.WithOutputPath(output))
	}
	if override := c.String("override-pack-id"); override != "" {
		opts = append(opts, ingestion.WithPackIDOverride(override))
	}

	pipeline, err := ingestion.NewPipeline(
		scraper,
		chunker.New(packCfg.ChunkSize, packCfg.ChunkOverlap),
		summarizer,
		embedder,
		store,
		packRegistry,
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	fmt.Fprintf(os.Stderr, "Pack: %s\n", packCfg.PackID)
	fmt.Fprintf(os.Stderr, "Sources: %d\n", len(packCfg.Sources))
	fmt.Fprintf(os.Stderr, "Store: %s\n", c.String("store"))
	fmt.Fprintln(os.Stderr)

	chunks, err := pipeline.Run(ctx, packCfg)
	if err != nil {
		return fmt.Errorf("pack build failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Processed %d chunks\n", len(chunks))
	return nil
}

// openStore builds the store and registry for the selected backend. The
// returned close function releases the local database when one was opened.
func openStore(c *cli.Context) (vectorstore.Store, ingestion.PackRegistry, func(), error) {
	prefix := c.String("collection-prefix")

	switch c.String("store") {
	case config.BackendQdrant:
		var clientOpts []qdrant.ClientOption
		if key := c.String("qdrant-api-key"); key != "" {
			clientOpts = append(clientOpts, qdrant.WithAPIKey(key))
		}
		client := qdrant.NewClient(c.String("qdrant-url"), clientOpts...)
		store := qdrant.NewStore(client, qdrant.WithCollectionPrefix(prefix))
		reg := registry.New(client, registry.WithCollection(c.String("registry-collection")))
		return store, reg, func() {}, nil
	case config.BackendLocal:
		store, err := local.Open(c.String("db"), local.WithCollectionPrefix(prefix))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open local store: %w", err)
		}
		return store, local.NewRegistry(store), func() { store.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", c.String("store"))
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
