// Package metrics exposes Prometheus collectors for scrape runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors on a dedicated registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry           *prometheus.Registry
	PagesTotal         *prometheus.CounterVec
	ListingsDiscovered *prometheus.CounterVec
	RecordsTotal       *prometheus.CounterVec
	ChallengesTotal    *prometheus.CounterVec
	VariantRunsTotal   *prometheus.CounterVec
	RunDuration        prometheus.Histogram
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_pages_total",
			Help: "Pages navigated by the scraper, by site.",
		},
		[]string{"site"},
	)
	discovered := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_listings_discovered_total",
			Help: "Listing URLs found on search pages, before deduplication.",
		},
		[]string{"site"},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Records produced, by site and outcome (full or degraded).",
		},
		[]string{"site", "outcome"},
	)
	challenges := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_challenges_total",
			Help: "Verification challenges detected on search pages.",
		},
		[]string{"site"},
	)
	variantRuns := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_variant_runs_total",
			Help: "Site scraper runs by outcome.",
		},
		[]string{"site", "outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_run_duration_seconds",
			Help:    "Wall time of a full orchestrator run.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 2400},
		},
	)

	registry.MustRegister(pages, discovered, records, challenges, variantRuns, duration)

	return &Metrics{
		Registry:           registry,
		PagesTotal:         pages,
		ListingsDiscovered: discovered,
		RecordsTotal:       records,
		ChallengesTotal:    challenges,
		VariantRunsTotal:   variantRuns,
		RunDuration:        duration,
	}
}

func (m *Metrics) IncPage(site string) {
	if m == nil {
		return
	}
	m.PagesTotal.WithLabelValues(site).Inc()
}

func (m *Metrics) AddDiscovered(site string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ListingsDiscovered.WithLabelValues(site).Add(float64(n))
}

// IncRecord counts one record; degraded selects the outcome label.
func (m *Metrics) IncRecord(site string, degraded bool) {
	if m == nil {
		return
	}
	outcome := "full"
	if degraded {
		outcome = "degraded"
	}
	m.RecordsTotal.WithLabelValues(site, outcome).Inc()
}

func (m *Metrics) IncChallenge(site string) {
	if m == nil {
		return
	}
	m.ChallengesTotal.WithLabelValues(site).Inc()
}

func (m *Metrics) IncVariantRun(site, outcome string) {
	if m == nil {
		return
	}
	m.VariantRunsTotal.WithLabelValues(site, outcome).Inc()
}

func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(d.Seconds())
}
