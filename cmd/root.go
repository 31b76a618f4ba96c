// Package cmd defines and implements the CLI commands for the sitemapper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webatlas/sitemapper/internal/config"
	"github.com/webatlas/sitemapper/internal/fetcher"
	"github.com/webatlas/sitemapper/internal/logging"
)

var cfgFile string

// appState carries the loaded configuration and logger for subcommands.
type appState struct {
	cfg    config.Config
	logger *zap.Logger
}

type appKeyType struct{}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemapper",
		Short: "Build hierarchical sitemaps by crawling a site's internal links.",
		Long: `sitemapper crawls a website breadth-first from its root URL, follows
same-domain links, and assembles the discovered pages into a nested
sitemap tree. Listing sections such as blogs are crawled deeper and
flattened under their section root.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKeyType{}, &appState{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if state, ok := cmd.Context().Value(appKeyType{}).(*appState); ok && state != nil {
				_ = state.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is env/defaults only)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*appState, error) {
	state, ok := ctx.Value(appKeyType{}).(*appState)
	if !ok || state == nil {
		return nil, errors.New("application services not initialized")
	}
	return state, nil
}

// buildFetcher constructs the page-fetch adapter selected by fetcher.mode.
func buildFetcher(cfg config.Config, logger *zap.Logger) (fetcher.Fetcher, error) {
	switch cfg.Fetcher.Mode {
	case "headless":
		return fetcher.NewChromedpFetcher(fetcher.ChromedpOptions{
			UserAgent:        cfg.Fetcher.UserAgent,
			Timeout:          cfg.FetchTimeout(),
			MaxConcurrency:   cfg.Fetcher.MaxConcurrency,
			DomainQPS:        cfg.Fetcher.DomainQPS,
			ScrollRounds:     cfg.Fetcher.ScrollRounds,
			ScrollIdleRounds: cfg.Fetcher.ScrollIdleRounds,
			ScrollPause:      cfg.ScrollPause(),
		}, logger)
	case "static":
		return fetcher.NewStaticFetcher(fetcher.StaticOptions{
			UserAgent: cfg.Fetcher.UserAgent,
			Timeout:   cfg.FetchTimeout(),
			MaxConns:  cfg.Fetcher.MaxConcurrency,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown fetcher mode %q", cfg.Fetcher.Mode)
	}
}

func closeFetcher(f fetcher.Fetcher, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.Close(ctx); err != nil {
		logger.Warn("failed to close fetcher", zap.Error(err))
	}
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
