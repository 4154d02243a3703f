package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/antibot"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/browser"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/metrics"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/ratelimit"
)

// listingSearch is the paginated discovery loop shared by every site.
type listingSearch struct {
	site         string
	session      *Session
	searchURL    func(query string, page int) string
	readySignal  []string
	linkSelector string
	timeout      time.Duration
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func (ls *listingSearch) run(ctx context.Context, query string, maxPages int) ([]string, error) {
	f := ls.session.Fetcher()
	var urls []string

	ls.logger.Info("gathering listing urls", "query", query, "max_pages", maxPages)

	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return urls, err
		}

		pageURL := ls.searchURL(query, page)
		ls.logger.Info("fetching search page", "query", query, "page", page, "url", pageURL)

		if _, err := f.Navigate(ctx, pageURL); err != nil {
			if errors.Is(err, browser.ErrTimeout) {
				ls.logger.Warn("search page timed out, stopping", "page", page, "error", err)
				break
			}
			return urls, fmt.Errorf("failed to load search page %d: %w", page, err)
		}
		ls.metrics.IncPage(ls.site)

		if !ls.waitForListings(f) {
			ls.reportMissingListings(page)
			break
		}

		links, err := f.FindAll(ls.linkSelector)
		if err != nil {
			if errors.Is(err, browser.ErrTimeout) {
				ls.logger.Warn("listing lookup timed out, stopping", "page", page, "error", err)
				break
			}
			return urls, fmt.Errorf("failed to collect listings on page %d: %w", page, err)
		}

		found := 0
		for _, link := range links {
			href, err := link.Attribute("href")
			if err != nil {
				continue
			}
			abs, ok := resolveHref(pageURL, href)
			if !ok {
				continue
			}
			urls = append(urls, abs)
			found++
		}

		if found == 0 {
			ls.logger.Warn("no listings found, likely the last page", "page", page)
			break
		}
		ls.metrics.AddDiscovered(ls.site, found)
		ls.logger.Debug("collected listings", "page", page, "count", found)
	}

	ls.logger.Info("finished gathering listing urls", "query", query, "count", len(urls))
	return urls, nil
}

// waitForListings waits for the ready signal. When it does not show up, a
// consent overlay may be covering the page: one is dismissed and the wait is
// retried once.
func (ls *listingSearch) waitForListings(f browser.Fetcher) bool {
	if f.WaitForSelector(ls.readySignal, ls.timeout) {
		return true
	}
	if !antibot.DismissOverlays(f, ls.logger) {
		return false
	}
	return f.WaitForSelector(ls.readySignal, ls.timeout)
}

func (ls *listingSearch) reportMissingListings(page int) {
	html, err := ls.session.Fetcher().Content()
	if err != nil {
		ls.logger.Warn("listings did not appear, stopping", "page", page, "error", err)
		return
	}
	if trigger, found := antibot.Detect(html); found {
		ls.metrics.IncChallenge(ls.site)
		ls.logger.Warn("verification challenge detected, stopping", "page", page, "trigger", trigger)
		return
	}
	ls.logger.Warn("listings did not appear, likely the last page", "page", page)
}

// detailLoop paces detail fetches and turns every per-URL failure into a
// degraded record.
type detailLoop struct {
	site    string
	session *Session
	limiter *ratelimit.SimpleRateLimiter
	scrape  func(ctx context.Context, url string) (models.Record, error)
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func (d *detailLoop) run(ctx context.Context, urls []string) []models.Record {
	d.logger.Info("scraping listing details", "count", len(urls))

	out := make([]models.Record, 0, len(urls))
	for i, u := range urls {
		var rec models.Record
		if err := d.limiter.Wait(ctx); err != nil {
			rec = models.Degraded(d.site, u, err)
		} else {
			d.logger.Info("scraping listing", "index", i+1, "total", len(urls), "url", u)
			rec = d.one(ctx, u)
		}

		d.session.Append(rec)
		d.metrics.IncRecord(d.site, rec.IsDegraded())
		out = append(out, rec)
	}
	return out
}

func (d *detailLoop) one(ctx context.Context, u string) (rec models.Record) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while scraping listing", "url", u, "panic", r)
			rec = models.Degraded(d.site, u, fmt.Errorf("panic: %v", r))
		}
	}()

	rec, err := d.scrape(ctx, u)
	if err != nil {
		d.logger.Warn("failed to scrape listing", "url", u, "error", err)
		return models.Degraded(d.site, u, err)
	}
	return rec
}

// resolveHref makes href absolute against base and keeps only http(s) links.
func resolveHref(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	abs := b.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}
