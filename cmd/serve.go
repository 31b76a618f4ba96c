package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/webatlas/sitemapper/internal/api"
	"github.com/webatlas/sitemapper/internal/jobs"
	"github.com/webatlas/sitemapper/internal/progress"
	"github.com/webatlas/sitemapper/internal/progress/sinks"
)

// newServeCmd creates the 'serve' subcommand, the long-running HTTP service.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sitemap HTTP service",
		Long: `Starts the HTTP API for submitting sitemap jobs and polling their
status. Crawls run in background workers; results are held in memory.`,

		RunE: runServeCommand,
	}
	return cmd
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	state, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := state.cfg
	logger := state.logger

	f, err := buildFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	defer closeFetcher(f, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promSink, err := sinks.NewPrometheusSink(reg)
	if err != nil {
		return fmt.Errorf("init metrics sink: %w", err)
	}
	hub := progress.NewHub(
		progress.Config{Logger: logger},
		sinks.NewLogSink(logger),
		promSink,
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := hub.Close(closeCtx); cerr != nil {
			logger.Warn("failed to close progress hub", zap.Error(cerr))
		}
	}()

	store := jobs.NewStore()
	runner := jobs.NewRunner(cmd.Context(), store, f, cfg, hub, logger)
	server := api.NewServer(store, runner, cfg, reg, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-cmd.Context().Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownSeconds)*time.Second,
	)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	// Let in-flight crawls notice cancellation and record partial results.
	runner.Wait()
	logger.Info("server stopped")
	return nil
}
