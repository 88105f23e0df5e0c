package config

import (
	"os"
	"strconv"
)

// Store backends the server can run against.
const (
	BackendQdrant = "qdrant"
	BackendLocal  = "local"
)

// ServerConfig is the API server configuration, loaded from environment
// variables (a .env file is read by the binary before this runs).
type ServerConfig struct {
	ListenAddr         string
	StoreBackend       string
	LocalStorePath     string
	QdrantURL          string
	QdrantAPIKey       string
	CollectionPrefix   string
	RegistryCollection string
	DefaultTopK        int
	EmbeddingHost      string
	EmbeddingModel     string
	APIKey             string
}

// LoadServerConfig reads the server configuration from the environment,
// applying defaults for everything unset.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		ListenAddr:         envOr("LISTEN_ADDR", ":8000"),
		StoreBackend:       envOr("STORE_BACKEND", BackendQdrant),
		LocalStorePath:     os.Getenv("LOCAL_STORE_PATH"),
		QdrantURL:          envOr("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:       os.Getenv("QDRANT_API_KEY"),
		CollectionPrefix:   envOr("COLLECTION_NAME_PREFIX", "pack_"),
		RegistryCollection: envOr("PACK_REGISTRY_COLLECTION", "pack_registry"),
		DefaultTopK:        envIntOr("DEFAULT_TOP_K", 5),
		EmbeddingHost:      envOr("EMBEDDING_HOST", "http://localhost:11434/v1"),
		EmbeddingModel:     envOr("EMBEDDING_MODEL", "embeddinggemma"),
		APIKey:             os.Getenv("OPENAI_API_KEY"),
	}
	if cfg.StoreBackend != BackendQdrant && cfg.StoreBackend != BackendLocal {
		return nil, ErrInvalidStoreBackend
	}
	if cfg.DefaultTopK < 1 {
		cfg.DefaultTopK = 5
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
