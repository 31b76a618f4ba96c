package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webatlas/sitemapper/internal/crawler"
	"github.com/webatlas/sitemapper/internal/progress"
	"github.com/webatlas/sitemapper/internal/progress/sinks"
)

// newCrawlCmd creates the 'crawl' subcommand, a one-shot crawl that
// prints the sitemap artifact as JSON.
func newCrawlCmd() *cobra.Command {
	var (
		rootURL  string
		maxDepth int
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a site once and print its sitemap",
		Long: `Crawls the given root URL breadth-first, builds the nested sitemap
tree, and writes the full artifact (pages, tree, report) as JSON.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if rootURL == "" {
				return fmt.Errorf("--url is required")
			}

			f, err := buildFetcher(state.cfg, state.logger)
			if err != nil {
				return fmt.Errorf("init fetcher: %w", err)
			}
			defer closeFetcher(f, state.logger)

			hub := progress.NewHub(
				progress.Config{Logger: state.logger},
				sinks.NewLogSink(state.logger),
			)
			defer func() {
				if cerr := hub.Close(cmd.Context()); cerr != nil {
					state.logger.Warn("failed to close progress hub", zap.Error(cerr))
				}
			}()

			cfg := state.cfg.CrawlConfig(rootURL, maxDepth)
			classifier, err := crawler.NewPathPatternClassifier(cfg.ListingPathPatterns)
			if err != nil {
				return fmt.Errorf("compile listing patterns: %w", err)
			}
			var seeds crawler.SeedFinder
			if cfg.DiscoverSitemaps {
				seeds = crawler.NewSitemapSeedFinder(cfg.SeedTimeout, state.logger)
			}

			engine := crawler.NewEngine(cfg, f, classifier, seeds, hub, state.logger)
			result, err := engine.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("run crawl: %w", err)
			}

			out := os.Stdout
			if outPath != "" {
				file, ferr := os.Create(outPath)
				if ferr != nil {
					return fmt.Errorf("create output file: %w", ferr)
				}
				defer file.Close()
				out = file
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rootURL, "url", "", "root URL to crawl")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "override crawler.max_depth for this run")
	cmd.Flags().StringVar(&outPath, "out", "", "write the JSON artifact to this file instead of stdout")

	return cmd
}
