package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/browser"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/extract"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/metrics"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/ratelimit"
)

const (
	DubizzleName          = "Dubizzle"
	dubizzleSearchBaseURL = "https://www.dubizzle.com.eg/en/mobile-phones-tablets-accessories-numbers/mobile-phones"
	dubizzleListing       = `li[aria-label="Listing"]`
)

type Dubizzle struct {
	session   *Session
	cfg       SiteConfig
	extractor *extract.Extractor
	search    *listingSearch
	details   *detailLoop
	logger    *slog.Logger
	now       func() time.Time
}

func NewDubizzle(sess *Session, cfg SiteConfig, logger *slog.Logger, m *metrics.Metrics) *Dubizzle {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scraper", "site", DubizzleName)

	d := &Dubizzle{
		session:   sess,
		cfg:       cfg,
		extractor: extract.New(extract.SpanSibling),
		logger:    logger,
		now:       time.Now,
	}
	d.search = &listingSearch{
		site:         DubizzleName,
		session:      sess,
		searchURL:    DubizzleSearchURL,
		readySignal:  []string{dubizzleListing},
		linkSelector: dubizzleListing + " a",
		timeout:      cfg.SearchTimeout,
		logger:       logger,
		metrics:      m,
	}
	d.details = &detailLoop{
		site:    DubizzleName,
		session: sess,
		limiter: ratelimit.NewSimpleRateLimiter(cfg.DelayMin, cfg.DelayMax),
		scrape:  d.scrapeListing,
		logger:  logger,
		metrics: m,
	}
	return d
}

// DubizzleSearchURL builds the used-phones search URL for one result page.
func DubizzleSearchURL(query string, page int) string {
	slug := url.PathEscape(strings.ReplaceAll(strings.TrimSpace(query), " ", "-"))
	return fmt.Sprintf("%s/q-%s/?page=%d&filter=new_used_eq_2", dubizzleSearchBaseURL, slug, page)
}

func (d *Dubizzle) Name() string {
	return DubizzleName
}

func (d *Dubizzle) DiscoverListingURLs(ctx context.Context, query string, maxPages int) ([]string, error) {
	return d.search.run(ctx, query, maxPages)
}

func (d *Dubizzle) ScrapeDetails(ctx context.Context, urls []string) []models.Record {
	return d.details.run(ctx, urls)
}

func (d *Dubizzle) scrapeListing(ctx context.Context, listingURL string) (models.Record, error) {
	f := d.session.Fetcher()

	if _, err := f.Navigate(ctx, listingURL); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return models.Record{}, fmt.Errorf("%w: %v", ErrPageLoad, err)
		}
		return models.Record{}, err
	}
	if !f.WaitForReady(d.cfg.DetailTimeout) {
		return models.Record{}, ErrPageLoad
	}

	html, err := f.Content()
	if err != nil {
		return models.Record{}, fmt.Errorf("failed to read listing page: %w", err)
	}
	doc, err := extract.Parse(html)
	if err != nil {
		return models.Record{}, err
	}

	rec := models.NewRecord(DubizzleName, listingURL, d.now())
	rec.ProductTitle = extract.Selector(doc, "h1")
	rec.Brand = d.extractor.Extract(doc, "Brand")
	rec.Model = d.extractor.Extract(doc, "Model")
	rec.RAM = d.extractor.Extract(doc, "RAM")
	rec.Storage = d.extractor.Extract(doc, "Storage")
	rec.Condition = d.extractor.Extract(doc, "Condition")
	rec.Warranty = d.extractor.Extract(doc, "Warranty")
	rec.Price = extract.Selector(doc, `span[aria-label="Price"]`)
	rec.Location = extract.Selector(doc, `span[aria-label="Location"]`)
	return rec, nil
}
