package crawler

import (
	"net/url"
	"sync"
)

// FrontierConfig bounds the frontier's admission policy.
type FrontierConfig struct {
	MaxDepth        int
	MaxListingDepth int
	MaxTotalPages   int
}

// Frontier owns all per-crawl mutable state: the FIFO queue of entries to
// visit and the set of URLs ever admitted. A normalized URL enters the
// queue at most once over the crawl's lifetime; the seen-check and the
// enqueue happen atomically under one mutex, which is the sole
// synchronization point that matters for correctness under concurrent
// discovery. Frontiers are crawl-scoped and never shared across crawls.
type Frontier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	cfg        FrontierConfig
	classifier Classifier

	queue     []Entry
	seen      map[string]struct{}
	visited   map[string]struct{}
	pages     []DiscoveredPage
	inflight  int
	closed    bool
	truncated bool
}

// NewFrontier constructs an empty frontier. The classifier may be nil, in
// which case every URL is standard class.
func NewFrontier(cfg FrontierConfig, classifier Classifier) *Frontier {
	f := &Frontier{
		cfg:        cfg,
		classifier: classifier,
		seen:       make(map[string]struct{}),
		visited:    make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Offer admits a normalized URL discovered at the given depth. It is a
// no-op for URLs already seen, for depths beyond the class budget
// (standard vs listing), and once the total page cap has been reached.
// The traversal class is decided here, on first offer, and never changes.
func (f *Frontier) Offer(normalized string, depth int, origin string) bool {
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, ok := f.seen[normalized]; ok {
		return false
	}
	if f.cfg.MaxTotalPages > 0 && len(f.pages) >= f.cfg.MaxTotalPages {
		f.truncated = true
		return false
	}

	class := ClassStandard
	if f.classifier != nil {
		class = f.classifier.Classify(u)
	}
	limit := f.cfg.MaxDepth
	if class == ClassListing {
		limit = f.cfg.MaxListingDepth
	}
	if depth > limit {
		return false
	}

	f.seen[normalized] = struct{}{}
	f.pages = append(f.pages, DiscoveredPage{
		URL:    normalized,
		Depth:  depth,
		Origin: origin,
		Class:  class,
	})
	f.queue = append(f.queue, Entry{URL: normalized, Depth: depth, Class: class})
	f.cond.Signal()
	return true
}

// Next dequeues the oldest entry, preserving breadth-first offer order.
// It blocks while the queue is empty but entries are still in flight
// (their processing may discover more work), and returns ok=false once
// the frontier is drained or closed.
func (f *Frontier) Next() (Entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if f.closed {
			return Entry{}, false
		}
		if len(f.queue) > 0 {
			e := f.queue[0]
			f.queue = f.queue[1:]
			f.inflight++
			f.visited[e.URL] = struct{}{}
			return e, true
		}
		if f.inflight == 0 {
			return Entry{}, false
		}
		f.cond.Wait()
	}
}

// MarkVisited records that processing of a dequeued entry has finished,
// successfully or not. Failed pages stay visited and are never retried
// within the same crawl.
func (f *Frontier) MarkVisited(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	if f.inflight == 0 && len(f.queue) == 0 {
		f.cond.Broadcast()
	}
}

// Close unblocks every waiter; used on cancellation so workers stop
// pulling entries.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Pages returns the discovered pages in first-discovery order.
func (f *Frontier) Pages() []DiscoveredPage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DiscoveredPage, len(f.pages))
	copy(out, f.pages)
	return out
}

// VisitedPages returns, in first-discovery order, only the pages that
// were actually dequeued for processing. After a cancelled crawl this is
// the partial result set; after a completed crawl it equals Pages.
func (f *Frontier) VisitedPages() []DiscoveredPage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DiscoveredPage, 0, len(f.pages))
	for _, p := range f.pages {
		if _, ok := f.visited[p.URL]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Truncated reports whether the total-page cap rejected at least one offer.
func (f *Frontier) Truncated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.truncated
}
