// Copyright 2025 ZeroSignal AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/CC-ZeroSignal-AI/cognit-edge/core"
)

const userAgent = "CognitEdgeScraper/0.1 (+https://zerosignal.ai)"

// Tags whose subtrees carry no pack content.
var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"header":   true,
	"footer":   true,
	"nav":      true,
}

// Scraper fetches public web pages and reduces them to plain text.
type Scraper struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Scraper) {
		if d > 0 {
			s.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Scraper) {
		if hc != nil {
			s.client = hc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger.With("component", "scraper")
		}
	}
}

// New creates a Scraper with a 20 second default timeout.
func New(opts ...Option) *Scraper {
	s := &Scraper{
		client: &http.Client{Timeout: 20 * time.Second},
		logger: slog.Default().With("component", "scraper"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads the page and returns its cleaned text. The document URL
// is the final one after redirects; the title falls back to that URL when
// the page has none.
func (s *Scraper) Fetch(ctx context.Context, url string) (*core.SourceDocument, error) {
	s.logger.Info("fetching source", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("scrape %s: status %d", url, resp.StatusCode)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: parse html: %w", url, err)
	}

	text, title := cleanDocument(root)
	if title == "" {
		title = finalURL
	}

	return &core.SourceDocument{
		URL:   finalURL,
		Title: title,
		Text:  text,
	}, nil
}

// cleanDocument walks the parse tree, dropping chrome subtrees and joining
// the remaining text nodes with single spaces.
func cleanDocument(root *html.Node) (text, title string) {
	var parts []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedTags[n.Data] {
				return
			}
			if n.Data == "title" && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
				return
			}
		}
		if n.Type == html.TextNode {
			if fields := strings.Fields(n.Data); len(fields) > 0 {
				parts = append(parts, strings.Join(fields, " "))
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return strings.Join(parts, " "), title
}
