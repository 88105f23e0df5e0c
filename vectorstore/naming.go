package vectorstore

import "strings"

// DefaultCollectionPrefix namespaces pack collections within a shared
// vector database instance.
const DefaultCollectionPrefix = "pack_"

// SanitizePackID lowercases the pack id and maps every character outside
// [a-z0-9_-] to an underscore. The result is stable and idempotent, so the
// same pack id always resolves to the same collection. Distinct pack ids
// can alias to the same sanitized form; callers that care must check the
// registry before writing.
func SanitizePackID(packID string) string {
	lowered := strings.ToLower(packID)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// CollectionName returns the collection name for a pack id under the given
// prefix. An empty prefix falls back to DefaultCollectionPrefix.
func CollectionName(prefix, packID string) string {
	if prefix == "" {
		prefix = DefaultCollectionPrefix
	}
	return prefix + SanitizePackID(packID)
}
