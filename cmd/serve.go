package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/matlukowski/readTube-sub000/api"
	"github.com/matlukowski/readTube-sub000/api/types"
	"github.com/matlukowski/readTube-sub000/internal/services/cleanup"
	"github.com/matlukowski/readTube-sub000/internal/services/workers"
	"github.com/spf13/cobra"
)

func newServeCmd(state *runtimeState) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the readTube HTTP server.

The server exposes synchronous and queued transcript acquisition, the
per-caller usage ledger and health endpoints. Background workers drain
the job queue and a cleanup loop removes stale temp files and old jobs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				state.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("host") {
				state.cfg.Server.Host, _ = cmd.Flags().GetString("host")
			}
			if cmd.Flags().Changed("workers") {
				state.cfg.Processing.Workers, _ = cmd.Flags().GetInt("workers")
			}
			return runServe(cmd.Context(), state)
		},
	}

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "interface to bind")
	serveCmd.Flags().Int("workers", 2, "background job workers (0 disables the job queue)")
	return serveCmd
}

func runServe(ctx context.Context, state *runtimeState) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := state.cfg
	logger := state.logger

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := &types.Dependencies{
		DB:                   a.db,
		TranscriptionService: a.transcription,
		Usage:                a.usage,
		Platform:             a.platform,
		Cache:                a.memo,
		Build:                types.BuildInfo{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime},
	}

	if cfg.Processing.Workers > 0 {
		pool := workers.NewWorkerPool(a.jobs, cfg.Processing.Workers, cfg.Processing.PollInterval, logger)
		pool.RegisterProcessor(workers.NewTranscriptionProcessor(a.jobs, a.transcription, logger))
		if err := pool.Start(ctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		defer pool.Stop()

		deps.JobService = a.jobs
		deps.WorkerPool = pool
	}

	cleaner := cleanup.NewService(cleanup.Options{
		TempDir:      cfg.Storage.TempDir,
		MaxTempAge:   cfg.Storage.MaxTempAge,
		Interval:     cfg.Storage.CleanupInterval,
		JobRetention: cfg.Processing.JobRetention,
	}, a.jobs, logger)
	cleaner.Start(ctx)
	defer cleaner.Stop()

	server := api.NewServer(cfg.Server, cfg.RateLimiting, logger)
	server.SetDependencies(deps)
	if err := server.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", server.Addr()).Info("Starting server")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
