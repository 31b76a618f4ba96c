package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/webatlas/sitemapper/internal/config"
	"github.com/webatlas/sitemapper/internal/crawler"
	"github.com/webatlas/sitemapper/internal/fetcher"
	"github.com/webatlas/sitemapper/internal/progress"
)

// Runner executes sitemap jobs in background goroutines. Each crawl owns
// its own engine and frontier; the fetcher and progress emitter are the
// only shared services. Crawls run under the Runner's base context, not
// the submitting request's, so they survive the request but stop on
// service shutdown.
type Runner struct {
	baseCtx context.Context
	store   *Store
	fetcher fetcher.Fetcher
	cfg     config.Config
	emitter progress.Emitter
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewRunner constructs a Runner. baseCtx bounds the lifetime of every
// crawl it launches.
func NewRunner(
	baseCtx context.Context,
	store *Store,
	f fetcher.Fetcher,
	cfg config.Config,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		baseCtx: baseCtx,
		store:   store,
		fetcher: f,
		cfg:     cfg,
		emitter: emitter,
		logger:  logger,
	}
}

// Launch starts the job's crawl in the background. Cancelling the base
// context cancels the crawl, which still leaves partial results on the job.
func (r *Runner) Launch(job Job) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(r.baseCtx, job)
	}()
}

// Wait blocks until every launched job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, job Job) {
	logger := r.logger.With(zap.String("job_id", job.ID), zap.String("root", job.RootURL))

	if err := r.store.SetStatus(ctx, job.ID, StatusRunning, ""); err != nil {
		logger.Error("job status update failed", zap.Error(err))
		return
	}

	crawlCfg := r.cfg.CrawlConfig(job.RootURL, job.MaxDepth)
	classifier, err := crawler.NewPathPatternClassifier(crawlCfg.ListingPathPatterns)
	if err != nil {
		r.fail(ctx, job.ID, logger, err)
		return
	}

	var seeds crawler.SeedFinder
	if crawlCfg.DiscoverSitemaps {
		seeds = crawler.NewSitemapSeedFinder(crawlCfg.SeedTimeout, logger)
	}

	engine := crawler.NewEngine(crawlCfg, r.fetcher, classifier, seeds, r.emitter, logger)
	result, err := engine.Run(ctx)
	if err != nil {
		r.fail(ctx, job.ID, logger, err)
		return
	}

	if err := r.store.SetResult(ctx, job.ID, result); err != nil {
		logger.Error("job result update failed", zap.Error(err))
		return
	}
	status := StatusCompleted
	errText := ""
	if result.Report.Status == crawler.StatusFailed {
		status = StatusFailed
		errText = result.Report.Reason
	}
	if err := r.store.SetStatus(ctx, job.ID, status, errText); err != nil {
		logger.Error("final job status update failed", zap.Error(err))
	}
}

func (r *Runner) fail(ctx context.Context, jobID string, logger *zap.Logger, cause error) {
	logger.Error("sitemap job failed", zap.Error(cause))
	if err := r.store.SetStatus(ctx, jobID, StatusFailed, cause.Error()); err != nil {
		logger.Error("fail status update failed", zap.Error(err))
	}
}
