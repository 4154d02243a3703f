package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/browser"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/config"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/database"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/metrics"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/orchestrator"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/scraper"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/storage"
)

// app owns the long-lived dependencies shared by every run: metrics and the
// optional Postgres and Redis sinks.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	db       *database.DB
	postgres *storage.Postgres
	redis    *storage.RedisStream
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		sink := storage.NewPostgres(db, logger)
		if err := sink.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to prepare database schema: %w", err)
		}
		a.db = db
		a.postgres = sink
		logger.Info("postgres sink enabled")
	}

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			a.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.redis = storage.NewRedisStream(client, cfg.Redis.Stream, cfg.Redis.MaxLen, logger)
		logger.Info("redis stream sink enabled", "stream", cfg.Redis.Stream)
	}

	return a, nil
}

// sink writes to outputPath and to every enabled external store.
func (a *app) sink(outputPath string) storage.Sink {
	sinks := []storage.Sink{storage.NewJSONFile(outputPath, a.logger)}
	if a.postgres != nil {
		sinks = append(sinks, a.postgres)
	}
	if a.redis != nil {
		sinks = append(sinks, a.redis)
	}
	return storage.Multi(sinks...)
}

func (a *app) run(ctx context.Context, queries, sites []string, maxPages int, sink storage.Sink) (*orchestrator.Result, error) {
	variants, err := scraper.Variants(sites, a.cfg.SiteConfigs(), a.logger, a.metrics)
	if err != nil {
		return nil, err
	}

	orch := orchestrator.New(
		browser.Launcher(a.cfg.BrowserOptions(), a.logger),
		variants,
		sink,
		orchestrator.Options{
			Queries:       queries,
			MaxPages:      maxPages,
			QueryDelayMin: a.cfg.Scraper.QueryDelayMin.Duration,
			QueryDelayMax: a.cfg.Scraper.QueryDelayMax.Duration,
		},
		a.logger,
		a.metrics,
	)
	return orch.Run(ctx)
}

func (a *app) close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	return errors.Join(errs...)
}

// runOutputPath gives each API run its own JSON file next to the configured
// output path.
func runOutputPath(base, runID string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "-" + runID + ext
}
