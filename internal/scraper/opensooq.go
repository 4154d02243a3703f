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
	OpenSooqName          = "OpenSooq"
	openSooqSearchBaseURL = "https://eg.opensooq.com/en/mobile-phones-tablets/mobile-phones"
	openSooqListing       = "a.postListItemData"
)

type OpenSooq struct {
	session   *Session
	cfg       SiteConfig
	extractor *extract.Extractor
	search    *listingSearch
	details   *detailLoop
	logger    *slog.Logger
	now       func() time.Time
}

func NewOpenSooq(sess *Session, cfg SiteConfig, logger *slog.Logger, m *metrics.Metrics) *OpenSooq {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scraper", "site", OpenSooqName)

	o := &OpenSooq{
		session:   sess,
		cfg:       cfg,
		extractor: extract.New(extract.ParagraphSibling),
		logger:    logger,
		now:       time.Now,
	}
	o.search = &listingSearch{
		site:         OpenSooqName,
		session:      sess,
		searchURL:    OpenSooqSearchURL,
		readySignal:  []string{openSooqListing},
		linkSelector: openSooqListing,
		timeout:      cfg.SearchTimeout,
		logger:       logger,
		metrics:      m,
	}
	o.details = &detailLoop{
		site:    OpenSooqName,
		session: sess,
		limiter: ratelimit.NewSimpleRateLimiter(cfg.DelayMin, cfg.DelayMax),
		scrape:  o.scrapeListing,
		logger:  logger,
		metrics: m,
	}
	return o
}

func OpenSooqSearchURL(query string, page int) string {
	return fmt.Sprintf("%s?term=%s&page=%d", openSooqSearchBaseURL, url.QueryEscape(strings.TrimSpace(query)), page)
}

func (o *OpenSooq) Name() string {
	return OpenSooqName
}

func (o *OpenSooq) DiscoverListingURLs(ctx context.Context, query string, maxPages int) ([]string, error) {
	return o.search.run(ctx, query, maxPages)
}

func (o *OpenSooq) ScrapeDetails(ctx context.Context, urls []string) []models.Record {
	return o.details.run(ctx, urls)
}

func (o *OpenSooq) scrapeListing(ctx context.Context, listingURL string) (models.Record, error) {
	f := o.session.Fetcher()

	if _, err := f.Navigate(ctx, listingURL); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return models.Record{}, fmt.Errorf("%w: %v", ErrPageLoad, err)
		}
		return models.Record{}, err
	}
	if !f.WaitForSelector([]string{"h1"}, o.cfg.DetailTimeout) {
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

	rec := models.NewRecord(OpenSooqName, listingURL, o.now())
	rec.ProductTitle = extract.Selector(doc, "h1")
	rec.Price = extract.Selector(doc, `div[data-id="post_price"]`)
	rec.Location = extract.Selector(doc, `a[data-id="location"]`)
	rec.Brand = o.extractor.Extract(doc, "Brand")
	rec.Model = o.extractor.Extract(doc, "Model")
	rec.Storage = o.extractor.Extract(doc, "Storage Size", "Storage")
	rec.Condition = o.extractor.Extract(doc, "Condition")
	return rec, nil
}
