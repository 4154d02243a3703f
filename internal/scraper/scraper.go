// Package scraper implements per-site listing discovery and detail
// extraction on top of a browser.Fetcher.
package scraper

import (
	"context"
	"errors"
	"time"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
)

var (
	ErrPageLoad    = errors.New("page load failed")
	ErrUnknownSite = errors.New("unknown site")
)

// SiteScraper hides one site's navigation, pagination and markup behind a
// uniform interface.
type SiteScraper interface {
	Name() string
	// DiscoverListingURLs walks search pages 1..maxPages and returns listing
	// URLs in page order. Duplicates are kept.
	DiscoverListingURLs(ctx context.Context, query string, maxPages int) ([]string, error)
	// ScrapeDetails returns one record per URL in the same order. Failed
	// URLs produce degraded records.
	ScrapeDetails(ctx context.Context, urls []string) []models.Record
}

// SiteConfig holds the per-site pacing and wait bounds.
type SiteConfig struct {
	DelayMin      time.Duration
	DelayMax      time.Duration
	SearchTimeout time.Duration
	DetailTimeout time.Duration
}

func DefaultDubizzleConfig() SiteConfig {
	return SiteConfig{
		DelayMin:      2 * time.Second,
		DelayMax:      4 * time.Second,
		SearchTimeout: 15 * time.Second,
		DetailTimeout: 25 * time.Second,
	}
}

func DefaultOpenSooqConfig() SiteConfig {
	return SiteConfig{
		DelayMin:      time.Second,
		DelayMax:      3 * time.Second,
		SearchTimeout: 20 * time.Second,
		DetailTimeout: 15 * time.Second,
	}
}
