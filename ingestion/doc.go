// Package ingestion orchestrates context pack builds: fetch sources, chunk
// and summarize their text, embed the results, upsert them into the pack's
// collection, and replace the pack's registry entry.
package ingestion
