package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/spf13/cobra"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/api"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/jobs"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/orchestrator"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/queue"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/pkg/logger"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, e.g. :8080.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--addr <host:port>]",
	Short: "Serves the run API and executes queued runs one at a time.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr = serveAddr
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.close(); err != nil {
				log.Warn("failed to close sinks", "error", err)
			}
		}()

		runQueue := queue.NewInMemoryQueue(cfg.Server.QueueSize)
		manager := jobs.NewManager(runQueue, func(ctx context.Context, req *queue.RunRequest) (*orchestrator.Result, error) {
			return a.run(ctx, req.Queries, req.Sites, req.MaxPages, a.sink(runOutputPath(cfg.Output.Path, req.ID)))
		}, log)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			manager.StartWorker(ctx)
		}()

		handlers := api.NewHandlers(manager, api.Defaults{
			Queries:  cfg.Scraper.Queries,
			Sites:    cfg.Scraper.Sites,
			MaxPages: cfg.Scraper.MaxPages,
		}, log)

		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      api.NewRouter(handlers, a.metrics.Registry, cfg.Server.AllowedOrigins),
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.WriteTimeout.Duration,
		}

		serverErr := make(chan error, 1)
		go func() {
			log.Info("starting server", "addr", cfg.Server.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
			close(serverErr)
		}()

		select {
		case <-ctx.Done():
			log.Info("shutting down server")
		case err := <-serverErr:
			if err != nil {
				runQueue.Close()
				wg.Wait()
				return fmt.Errorf("server failed: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", "error", err)
		}

		runQueue.Close()
		wg.Wait()
		log.Info("server stopped")
		return nil
	},
}
