package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// StaticOptions configures the static HTTP adapter.
type StaticOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MaxConns bounds connections per host on the shared transport.
	MaxConns int
}

// StaticFetcher fetches pages over plain HTTP via Colly. Suitable for
// static-content sites and tests; pages that require script execution
// should use the chromedp adapter instead.
type StaticFetcher struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewStaticFetcher constructs a configured Colly-based Fetcher.
func NewStaticFetcher(opts StaticOptions, logger *zap.Logger) (*StaticFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxConns <= 0 {
		opts.MaxConns = 16
	}

	collectorOpts := []colly.CollectorOption{colly.Async(true)}
	if opts.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(opts.UserAgent))
	}
	base := colly.NewCollector(collectorOpts...)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   opts.MaxConns,
		MaxConnsPerHost:       opts.MaxConns,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(opts.Timeout)

	return &StaticFetcher{baseCollector: base, logger: logger}, nil
}

// Close is a no-op; the shared transport needs no teardown.
func (f *StaticFetcher) Close(context.Context) error {
	return nil
}

// Fetch retrieves a page through a clone of the base collector. The
// scroll option is ignored: a static fetch cannot trigger lazy loading.
func (f *StaticFetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	collector := f.baseCollector.Clone()
	resultCh := make(chan staticResult, 1)
	var once sync.Once
	send := func(res staticResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(staticResult{html: string(r.Body)})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(staticResult{err: classifyStaticErr(err)})
	})

	if err := collector.Visit(req.URL); err != nil {
		return Result{}, classifyStaticErr(err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if res.err != nil {
			return Result{}, res.err
		}
		// Links stay nil; the caller extracts them from the snapshot.
		return Result{HTML: res.html}, nil
	default:
		return Result{}, fmt.Errorf("%w: fetch produced no result", ErrNetwork)
	}
}

type staticResult struct {
	html string
	err  error
}

// classifyStaticErr maps transport failures onto the fetch error taxonomy.
func classifyStaticErr(err error) error {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if strings.Contains(err.Error(), "Client.Timeout") {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
