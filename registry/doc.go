// Package registry tracks pack-level metadata as single points in a
// dedicated collection, one fully-overwritten entry per pack.
package registry
