package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/database"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
)

// Postgres upserts every record into product_listings in one transaction.
type Postgres struct {
	db     *database.DB
	logger *slog.Logger
}

func NewPostgres(db *database.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger.With("component", "postgres_sink")}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	return p.db.EnsureListingsSchema(ctx)
}

func (p *Postgres) Write(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		p.logger.Warn("no records to store")
		return nil
	}

	err := p.db.WithTx(ctx, func(tx pgx.Tx) error {
		return database.UpsertListings(ctx, tx, records)
	})
	if err != nil {
		return fmt.Errorf("failed to store listings: %w", err)
	}

	p.logger.Info("stored listings", "count", len(records))
	return nil
}
