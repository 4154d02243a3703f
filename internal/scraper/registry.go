package scraper

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/metrics"
)

// Variant builds a site scraper around a fresh session.
type Variant struct {
	Name string
	New  func(sess *Session) SiteScraper
}

// KnownSites lists the configuration keys Variants accepts.
var KnownSites = []string{"dubizzle", "opensooq"}

// Variants maps configured site names, case-insensitively, to constructors in
// the given order. Sites missing from configs use their defaults.
func Variants(names []string, configs map[string]SiteConfig, logger *slog.Logger, m *metrics.Metrics) ([]Variant, error) {
	variants := make([]Variant, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		switch key {
		case "dubizzle":
			cfg, ok := configs[key]
			if !ok {
				cfg = DefaultDubizzleConfig()
			}
			variants = append(variants, Variant{
				Name: DubizzleName,
				New: func(sess *Session) SiteScraper {
					return NewDubizzle(sess, cfg, logger, m)
				},
			})
		case "opensooq":
			cfg, ok := configs[key]
			if !ok {
				cfg = DefaultOpenSooqConfig()
			}
			variants = append(variants, Variant{
				Name: OpenSooqName,
				New: func(sess *Session) SiteScraper {
					return NewOpenSooq(sess, cfg, logger, m)
				},
			})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownSite, name)
		}
	}
	return variants, nil
}

// IsKnownSite reports whether Variants accepts name.
func IsKnownSite(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, k := range KnownSites {
		if k == key {
			return true
		}
	}
	return false
}
