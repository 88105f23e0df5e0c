// Package local provides an embedded BadgerDB implementation of
// vectorstore.Store for offline builds and tests. Collections are key
// prefixes, search is a full cosine scan.
package local
