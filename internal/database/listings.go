package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
)

const listingsSchema = `
CREATE TABLE IF NOT EXISTS product_listings (
	source        TEXT NOT NULL,
	listing_url   TEXT NOT NULL,
	product_title TEXT,
	brand         TEXT,
	model         TEXT,
	ram           TEXT,
	storage       TEXT,
	condition     TEXT,
	warranty      TEXT,
	price         TEXT,
	location      TEXT,
	scraped_at    TIMESTAMPTZ,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (source, listing_url)
)`

const upsertListing = `
	INSERT INTO product_listings (
		source, listing_url, product_title, brand, model, ram, storage,
		condition, warranty, price, location, scraped_at, error
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (source, listing_url) DO UPDATE SET
		product_title = EXCLUDED.product_title,
		brand = EXCLUDED.brand,
		model = EXCLUDED.model,
		ram = EXCLUDED.ram,
		storage = EXCLUDED.storage,
		condition = EXCLUDED.condition,
		warranty = EXCLUDED.warranty,
		price = EXCLUDED.price,
		location = EXCLUDED.location,
		scraped_at = EXCLUDED.scraped_at,
		error = EXCLUDED.error,
		updated_at = CURRENT_TIMESTAMP`

// EnsureListingsSchema creates the product_listings table if it is missing.
func (db *DB) EnsureListingsSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, listingsSchema); err != nil {
		return fmt.Errorf("failed to create product_listings: %w", err)
	}
	return nil
}

// UpsertListings writes records keyed by (source, listing_url). A degraded
// record clears the fields of an earlier full record for the same URL.
func UpsertListings(ctx context.Context, tx pgx.Tx, records []models.Record) error {
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(upsertListing,
			r.Source, r.ListingURL,
			nullable(r.ProductTitle), nullable(r.Brand), nullable(r.Model), nullable(r.RAM),
			nullable(r.Storage), nullable(r.Condition), nullable(r.Warranty),
			nullable(r.Price), nullable(r.Location), r.Timestamp, nullable(r.Error),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to upsert listing %s: %w", records[i].ListingURL, err)
		}
	}
	return results.Close()
}

// CountListings returns how many rows exist for source.
func (db *DB) CountListings(ctx context.Context, source string) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM product_listings WHERE source = $1`, source,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
