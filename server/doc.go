// Package server exposes the context pack HTTP API: document ingestion,
// semantic search, bulk download, and the pack metadata registry.
package server
