// Package vectorstore defines the storage contract for context pack
// collections and the naming scheme that maps pack identifiers onto
// collection names. Concrete backends live in the qdrant and local
// subpackages.
package vectorstore
