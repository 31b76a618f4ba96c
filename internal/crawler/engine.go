package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/webatlas/sitemapper/internal/fetcher"
	"github.com/webatlas/sitemapper/internal/progress"
)

// Engine drives a single crawl to exhaustion or its limits: it owns the
// frontier, the worker pool, and the report. Engines are single-use.
type Engine struct {
	cfg        Config
	fetcher    fetcher.Fetcher
	classifier Classifier
	seeds      SeedFinder
	emitter    progress.Emitter
	logger     *zap.Logger
	crawlID    uuid.UUID
}

// NewEngine constructs an Engine. The classifier, seed finder, and
// emitter may be nil; the fetcher may not.
func NewEngine(
	cfg Config,
	f fetcher.Fetcher,
	classifier Classifier,
	seeds SeedFinder,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		fetcher:    f,
		classifier: classifier,
		seeds:      seeds,
		emitter:    emitter,
		logger:     logger,
		crawlID:    uuid.New(),
	}
}

// CrawlID identifies this run in progress streams.
func (e *Engine) CrawlID() uuid.UUID {
	return e.crawlID
}

// Run executes the crawl and assembles the Result. Per-page failures are
// contained at the worker boundary and never abort the crawl; only an
// invalid configuration or an unusable fetcher returns an error. On
// cancellation Run returns a Result with status failed (reason cancelled)
// holding the pages processed so far.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if e.fetcher == nil {
		return nil, errors.New("crawler: no fetcher configured")
	}

	start := time.Now()
	rootNorm, err := Normalize(e.cfg.RootURL, nil, e.cfg.KeepQuery)
	if err != nil {
		return nil, fmt.Errorf("normalize root url: %w", err)
	}
	rootURL, err := url.Parse(rootNorm)
	if err != nil {
		return nil, fmt.Errorf("parse root url: %w", err)
	}
	rootHost := rootURL.Host

	rec := newRecorder()
	rec.add(EventCrawlStart, rootNorm, "")
	e.emit(progress.Event{Stage: progress.StageCrawlStart, URL: rootNorm})

	fr := NewFrontier(FrontierConfig{
		MaxDepth:        e.cfg.MaxDepth,
		MaxListingDepth: e.cfg.MaxListingDepth,
		MaxTotalPages:   e.cfg.MaxTotalPages,
	}, e.classifier)
	fr.Offer(rootNorm, 0, "")
	e.offerSeeds(ctx, fr, rootNorm, rootHost)

	// Unblock workers parked in Next when the caller cancels.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fr.Close()
		case <-watchDone:
		}
	}()

	g, workerCtx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.Concurrency; i++ {
		g.Go(func() error {
			for {
				if err := workerCtx.Err(); err != nil {
					return err
				}
				entry, ok := fr.Next()
				if !ok {
					return nil
				}
				e.processEntry(workerCtx, fr, rec, entry, rootHost)
				fr.MarkVisited(entry.URL)
			}
		})
	}
	runErr := g.Wait()
	close(watchDone)

	cancelled := runErr != nil || ctx.Err() != nil
	return e.buildResult(fr, rec, rootNorm, start, cancelled), nil
}

// processEntry performs one fetch-extract-offer cycle. Every per-page
// failure is converted into a report entry here; nothing propagates.
func (e *Engine) processEntry(ctx context.Context, fr *Frontier, rec *recorder, entry Entry, rootHost string) {
	fetchStart := time.Now()
	res, err := e.fetcher.Fetch(ctx, fetcher.Request{
		URL:              entry.URL,
		WaitForReady:     true,
		ScrollToLoadMore: entry.Class == ClassListing,
	})
	if err != nil {
		rec.add(EventPageFailed, entry.URL, err.Error())
		e.emit(progress.Event{
			Stage: progress.StagePageFailed,
			URL:   entry.URL,
			Depth: entry.Depth,
			Dur:   time.Since(fetchStart),
			Note:  err.Error(),
		})
		e.logger.Warn("page fetch failed",
			zap.String("url", entry.URL),
			zap.Int("depth", entry.Depth),
			zap.Error(err),
		)
		return
	}

	links := res.Links
	if links == nil {
		links = ExtractLinks(res.HTML)
	}
	rec.addRawLinks(int64(len(links)))

	base, err := url.Parse(entry.URL)
	if err != nil {
		rec.add(EventPageFailed, entry.URL, err.Error())
		return
	}

	admitted := 0
	for _, raw := range links {
		norm, err := Normalize(raw, base, e.cfg.KeepQuery)
		if err != nil {
			e.logger.Debug("dropping link", zap.String("href", raw), zap.Error(err))
			continue
		}
		target, err := url.Parse(norm)
		if err != nil {
			continue
		}
		// Cross-domain links are observed but never traversed.
		if !InDomain(target.Host, rootHost, e.cfg.AllowedHosts) {
			continue
		}
		if IsAssetPath(target.Path) {
			continue
		}
		if fr.Offer(norm, entry.Depth+1, entry.URL) {
			admitted++
		}
	}

	rec.add(EventPageFetched, entry.URL, fmt.Sprintf("%d links, %d new", len(links), admitted))
	e.emit(progress.Event{
		Stage: progress.StagePageFetched,
		URL:   entry.URL,
		Depth: entry.Depth,
		Links: len(links),
		Dur:   time.Since(fetchStart),
	})
}

// offerSeeds feeds sitemap-discovered URLs into the frontier before the
// workers start. Failures here are logged and ignored; seeds are a bonus,
// not a requirement.
func (e *Engine) offerSeeds(ctx context.Context, fr *Frontier, rootNorm, rootHost string) {
	if e.seeds == nil || !e.cfg.DiscoverSitemaps {
		return
	}
	found, err := e.seeds.Find(ctx, rootNorm)
	if err != nil {
		e.logger.Debug("sitemap seed discovery failed", zap.Error(err))
		return
	}
	offered := 0
	for _, raw := range found {
		norm, err := Normalize(raw, nil, e.cfg.KeepQuery)
		if err != nil {
			continue
		}
		target, err := url.Parse(norm)
		if err != nil || !InDomain(target.Host, rootHost, e.cfg.AllowedHosts) {
			continue
		}
		if fr.Offer(norm, 1, rootNorm) {
			offered++
		}
	}
	if offered > 0 {
		e.logger.Info("seeded frontier from sitemaps", zap.Int("urls", offered))
	}
}

func (e *Engine) buildResult(fr *Frontier, rec *recorder, rootNorm string, start time.Time, cancelled bool) *Result {
	var pages []DiscoveredPage
	status := StatusCompleted
	reason := ""
	switch {
	case cancelled:
		// Partial results: only pages actually processed count.
		pages = fr.VisitedPages()
		status = StatusFailed
		reason = "cancelled"
		rec.add(EventCancelled, "", fmt.Sprintf("%d pages discovered before cancellation", len(pages)))
	default:
		pages = fr.Pages()
		if fr.Truncated() {
			rec.add(EventTruncated, "", fmt.Sprintf("stopped at max_total_pages=%d", e.cfg.MaxTotalPages))
		}
		rec.add(EventCrawlDone, "", fmt.Sprintf("%d pages discovered", len(pages)))
	}

	tree := BuildTree(pages)
	elapsed := time.Since(start)

	if cancelled {
		e.emit(progress.Event{Stage: progress.StageCrawlError, Dur: elapsed, Note: reason})
	} else {
		e.emit(progress.Event{Stage: progress.StageTreeBuilt, Note: fmt.Sprintf("%d pages", len(pages))})
		e.emit(progress.Event{Stage: progress.StageCrawlDone, Dur: elapsed})
	}
	e.logger.Info("crawl finished",
		zap.String("root", rootNorm),
		zap.String("status", string(status)),
		zap.Int("pages", len(pages)),
		zap.Duration("elapsed", elapsed),
	)

	events, rawLinks := rec.snapshot()
	return &Result{
		Pages: pages,
		Tree:  tree,
		Report: Report{
			RootURL:         rootNorm,
			Events:          events,
			DiscoveredCount: len(pages),
			RawLinksSeen:    rawLinks,
			Elapsed:         elapsed,
			Status:          status,
			Reason:          reason,
			Truncated:       !cancelled && fr.Truncated(),
		},
	}
}

func (e *Engine) emit(evt progress.Event) {
	if e.emitter == nil {
		return
	}
	evt.CrawlID = e.crawlID
	evt.TS = time.Now().UTC()
	e.emitter.Emit(evt)
}

// recorder collects the crawl log. Workers append concurrently; the
// report freezes its snapshot at crawl end.
type recorder struct {
	mu       sync.Mutex
	events   []Event
	rawLinks int64
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) add(kind EventKind, url, note string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{TS: time.Now().UTC(), Kind: kind, URL: url, Note: note})
}

func (r *recorder) addRawLinks(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rawLinks += n
}

func (r *recorder) snapshot() ([]Event, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := make([]Event, len(r.events))
	copy(events, r.events)
	return events, r.rawLinks
}
