// Package qdrant provides a REST client for Qdrant and a vectorstore.Store
// implementation over it. One collection per context pack, cosine distance,
// durably-acknowledged upserts.
package qdrant
