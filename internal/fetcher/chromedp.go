package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ChromedpOptions configures the headless browser adapter.
type ChromedpOptions struct {
	UserAgent      string
	Timeout        time.Duration
	MaxConcurrency int
	DomainQPS      float64
	// ScrollRounds caps how many scroll-to-bottom passes a listing page
	// gets; ScrollIdleRounds stops early after that many consecutive
	// passes that surface no new anchors.
	ScrollRounds     int
	ScrollIdleRounds int
	ScrollPause      time.Duration
}

// ChromedpFetcher renders pages with headless Chrome via chromedp. The
// browser process is shared; each fetch runs in its own tab with its own
// timeout.
type ChromedpFetcher struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	sem             chan struct{}
	opts            ChromedpOptions
	domainLimiters  sync.Map
}

const collectHrefsJS = `Array.from(document.querySelectorAll('a[href]'))` +
	`.map(a => a.getAttribute('href')).filter(h => h !== null && h.trim() !== '')`

// NewChromedpFetcher starts a headless browser and warms it up; it fails
// fast when Chrome cannot be launched at all, which is the one fetcher
// condition that aborts a crawl.
func NewChromedpFetcher(opts ChromedpOptions, logger *zap.Logger) (*ChromedpFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 2
	}
	if opts.ScrollRounds <= 0 {
		opts.ScrollRounds = 6
	}
	if opts.ScrollIdleRounds <= 0 {
		opts.ScrollIdleRounds = 2
	}
	if opts.ScrollPause <= 0 {
		opts.ScrollPause = time.Second
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &ChromedpFetcher{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		sem:             make(chan struct{}, opts.MaxConcurrency),
		opts:            opts,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (f *ChromedpFetcher) Close(context.Context) error {
	if f == nil {
		return nil
	}
	f.browserCancel()
	f.allocatorCancel()
	return nil
}

// Fetch navigates a fresh tab to the URL, waits for the body, optionally
// scrolls to trigger lazy loading, and returns the DOM snapshot plus the
// anchors read from the live DOM.
func (f *ChromedpFetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	release, err := f.acquireSlot(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	if err := f.waitDomainBudget(ctx, req.URL); err != nil {
		return Result{}, fmt.Errorf("render rate limit: %w", err)
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	taskCtx, cancelTask := context.WithTimeout(tabCtx, f.opts.Timeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	tasks := chromedp.Tasks{network.Enable()}
	if f.opts.UserAgent != "" {
		tasks = append(tasks, emulation.SetUserAgentOverride(f.opts.UserAgent))
	}
	tasks = append(tasks, chromedp.Navigate(req.URL))
	if req.WaitForReady {
		tasks = append(tasks, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return Result{}, classifyRenderErr(err)
	}

	var links []string
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(collectHrefsJS, &links)); err != nil {
		return Result{}, classifyRenderErr(err)
	}

	if req.ScrollToLoadMore {
		links = f.scrollForMore(taskCtx, links)
	}

	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return Result{}, classifyRenderErr(err)
	}

	return Result{HTML: html, Links: links}, nil
}

// scrollForMore repeatedly scrolls to the bottom of a listing page to
// trigger lazy loading, re-reading the anchor set each pass. It stops
// after ScrollIdleRounds consecutive passes discover nothing new, or
// after ScrollRounds passes total; errors end the loop with whatever was
// already collected.
func (f *ChromedpFetcher) scrollForMore(ctx context.Context, links []string) []string {
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		seen[l] = struct{}{}
	}
	idle := 0
	for round := 0; round < f.opts.ScrollRounds && idle < f.opts.ScrollIdleRounds; round++ {
		err := chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(f.opts.ScrollPause),
		)
		if err != nil {
			if f.logger != nil {
				f.logger.Debug("scroll round failed", zap.Error(err))
			}
			break
		}
		var more []string
		if err := chromedp.Run(ctx, chromedp.Evaluate(collectHrefsJS, &more)); err != nil {
			break
		}
		fresh := 0
		for _, l := range more {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			links = append(links, l)
			fresh++
		}
		if fresh == 0 {
			idle++
		} else {
			idle = 0
		}
	}
	return links
}

func (f *ChromedpFetcher) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case f.sem <- struct{}{}:
		return func() { <-f.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

func (f *ChromedpFetcher) waitDomainBudget(ctx context.Context, rawURL string) error {
	if f.opts.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse render url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := f.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(f.opts.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}

// classifyRenderErr maps chromedp failures onto the fetch error taxonomy.
func classifyRenderErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case strings.Contains(err.Error(), "net::"):
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	default:
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
