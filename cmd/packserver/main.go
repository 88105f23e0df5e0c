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
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/CC-ZeroSignal-AI/cognit-edge/ai"
	"github.com/CC-ZeroSignal-AI/cognit-edge/ai/openai"
	"github.com/CC-ZeroSignal-AI/cognit-edge/config"
	"github.com/CC-ZeroSignal-AI/cognit-edge/registry"
	"github.com/CC-ZeroSignal-AI/cognit-edge/server"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore/local"
	"github.com/CC-ZeroSignal-AI/cognit-edge/vectorstore/qdrant"
)

func main() {
	app := &cli.App{
		Name:  "packserver",
		Usage: "HTTP API for searching and managing context packs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides LISTEN_ADDR)",
			},
		},
		Before: setupLogger,
		Action: serveCommand,
	}

	// A .env next to the binary is optional.
	_ = godotenv.Load()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}
	if listen := c.String("listen"); listen != "" {
		cfg.ListenAddr = listen
	}

	store, packRegistry, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(cfg.EmbeddingHost),
		ai.WithEmbeddingModel(cfg.EmbeddingModel),
		ai.WithAPIKey(cfg.APIKey),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := ai.NewEmbeddingService(func() (ai.Embedder, error) {
		return openai.NewEmbedder(aiConfig)
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create embedding service: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(store, packRegistry, embedder,
		server.WithDefaultTopK(cfg.DefaultTopK),
	)

	slog.Info("starting server",
		"addr", cfg.ListenAddr,
		"backend", cfg.StoreBackend,
		"embedding_model", cfg.EmbeddingModel)

	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// openStore builds the store and registry for the configured backend. The
// returned close function releases the local database when one was opened.
func openStore(cfg *config.ServerConfig) (vectorstore.Store, server.Registry, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendQdrant:
		var clientOpts []qdrant.ClientOption
		if cfg.QdrantAPIKey != "" {
			clientOpts = append(clientOpts, qdrant.WithAPIKey(cfg.QdrantAPIKey))
		}
		client := qdrant.NewClient(cfg.QdrantURL, clientOpts...)
		store := qdrant.NewStore(client, qdrant.WithCollectionPrefix(cfg.CollectionPrefix))
		reg := registry.New(client, registry.WithCollection(cfg.RegistryCollection))
		return store, reg, func() {}, nil
	case config.BackendLocal:
		store, err := local.Open(cfg.LocalStorePath, local.WithCollectionPrefix(cfg.CollectionPrefix))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open local store: %w", err)
		}
		return store, local.NewRegistry(store), func() { store.Close() }, nil
	default:
		return nil, nil, nil, config.ErrInvalidStoreBackend
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
