package local

import "fmt"

// Key prefixes for different data types
const (
	collectionMetaPrefix = "colmeta"
	pointPrefix          = "point"
)

// makeCollectionMetaKey generates the key holding a collection's settings.
func makeCollectionMetaKey(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s", collectionMetaPrefix, collection))
}

// makePointKey generates a key for a point within a collection.
func makePointKey(collection, pointID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", pointPrefix, collection, pointID))
}

// makePointScanPrefix generates the iteration prefix covering every point
// in a collection.
func makePointScanPrefix(collection string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", pointPrefix, collection))
}
