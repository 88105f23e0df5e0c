// Package scrape fetches web pages and strips them to the plain text fed
// into chunking.
package scrape
