// Package fetcher defines the page-fetch capability consumed by the
// crawler, plus concrete adapters: a chromedp headless browser for
// script-rendered sites and a colly-based static HTTP adapter.
package fetcher

import (
	"context"
	"errors"
)

// Per-page fetch failures. The crawler treats all three as non-fatal:
// the page stays visited, contributes no outbound links, and the crawl
// continues.
var (
	ErrTimeout = errors.New("fetch timeout")
	ErrNetwork = errors.New("network error")
	ErrRender  = errors.New("render error")
)

// Request captures everything needed to fetch one page.
type Request struct {
	URL string
	// WaitForReady blocks until the document body is present before the
	// DOM snapshot is taken.
	WaitForReady bool
	// ScrollToLoadMore scrolls the page to trigger lazy-loaded content
	// before extraction; used for listing-class pages.
	ScrollToLoadMore bool
}

// Result is the rendered outcome of a fetch.
type Result struct {
	// HTML is the post-render DOM snapshot.
	HTML string
	// Links holds raw hrefs read directly from the live DOM when the
	// adapter can do so; when nil the caller extracts from HTML instead.
	Links []string
}

// Fetcher loads a page and returns its rendered DOM. Implementations own
// all browser and network concerns; the crawler only calls Fetch and
// interprets the result or error.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Result, error)
	Close(ctx context.Context) error
}
