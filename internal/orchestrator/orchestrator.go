// Package orchestrator runs site scrapers one after another over a set of
// queries and hands the combined records to a sink.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/browser"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/metrics"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/ratelimit"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/scraper"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/storage"
)

type State int

const (
	NotStarted State = iota
	Running
	Finished
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// VariantReport summarizes one site scraper run. Outcome is Finished or
// Failed; State is Closed once the session has been released.
type VariantReport struct {
	Site       string `json:"site"`
	State      State  `json:"state"`
	Outcome    State  `json:"outcome"`
	Queries    int    `json:"queries"`
	Discovered int    `json:"discovered"`
	Unique     int    `json:"unique"`
	Records    int    `json:"records"`
	Degraded   int    `json:"degraded"`
	Error      string `json:"error,omitempty"`
}

func (r VariantReport) Failed() bool {
	return r.Outcome == Failed
}

type Result struct {
	RunID      uuid.UUID       `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Records    []models.Record `json:"-"`
	Variants   []VariantReport `json:"variants"`
}

type Options struct {
	Queries       []string
	MaxPages      int
	QueryDelayMin time.Duration
	QueryDelayMax time.Duration
}

type Orchestrator struct {
	open     browser.Factory
	variants []scraper.Variant
	sink     storage.Sink
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func New(open browser.Factory, variants []scraper.Variant, sink storage.Sink, opts Options, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		open:     open,
		variants: variants,
		sink:     sink,
		opts:     opts,
		logger:   logger.With("component", "orchestrator"),
		metrics:  m,
	}
}

// Run executes every variant in order. Variant failures are recorded in the
// result; only a sink failure is returned as an error.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	res := &Result{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
	}
	logger := o.logger.With("run_id", res.RunID.String())
	logger.Info("starting run", "variants", len(o.variants), "queries", len(o.opts.Queries), "max_pages", o.opts.MaxPages)

	for _, v := range o.variants {
		report, records := o.runVariant(ctx, v, logger)
		res.Variants = append(res.Variants, report)
		res.Records = append(res.Records, records...)
	}

	res.FinishedAt = time.Now().UTC()
	o.metrics.ObserveRun(res.FinishedAt.Sub(res.StartedAt))

	logger.Info("run complete", "records", len(res.Records), "degraded", models.CountDegraded(res.Records))

	if err := o.sink.Write(ctx, res.Records); err != nil {
		return res, fmt.Errorf("failed to write results: %w", err)
	}
	return res, nil
}

// runVariant drives one site scraper inside its own session. The session is
// released on every path, and whatever it accumulated is returned.
func (o *Orchestrator) runVariant(ctx context.Context, v scraper.Variant, logger *slog.Logger) (report VariantReport, records []models.Record) {
	logger = logger.With("site", v.Name)
	report = VariantReport{Site: v.Name, State: NotStarted}

	logger.Info("starting scraper")
	defer func() {
		if r := recover(); r != nil {
			report.Outcome = Failed
			report.Error = fmt.Sprintf("panic: %v", r)
			logger.Error("scraper panicked", "panic", r)
		}
		report.State = Closed
		report.Records = len(records)
		report.Degraded = models.CountDegraded(records)
		o.metrics.IncVariantRun(v.Name, report.Outcome.String())
		logger.Info("finished scraper", "outcome", report.Outcome.String(), "records", report.Records)
	}()

	report.State = Running

	fetcher, err := o.open(ctx)
	if err != nil {
		report.Outcome = Failed
		report.Error = fmt.Sprintf("failed to open browser: %v", err)
		logger.Error("failed to open browser session", "error", err)
		return report, nil
	}

	sess := scraper.NewSession(fetcher)
	defer func() {
		if err := sess.Release(); err != nil {
			logger.Warn("failed to release browser session", "error", err)
		}
		records = sess.Records()
	}()

	if err := o.drive(ctx, v, sess, &report, logger); err != nil {
		report.Outcome = Failed
		report.Error = err.Error()
		logger.Error("scraper failed", "error", err)
		return report, nil
	}

	report.Outcome = Finished
	return report, nil
}

func (o *Orchestrator) drive(ctx context.Context, v scraper.Variant, sess *scraper.Session, report *VariantReport, logger *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	s := v.New(sess)
	pacer := ratelimit.NewSimpleRateLimiter(o.opts.QueryDelayMin, o.opts.QueryDelayMax)

	var discovered []string
	for _, q := range o.opts.Queries {
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
		urls, err := s.DiscoverListingURLs(ctx, q, o.opts.MaxPages)
		discovered = append(discovered, urls...)
		report.Queries++
		report.Discovered = len(discovered)
		if err != nil {
			return fmt.Errorf("discovery for %q: %w", q, err)
		}
	}

	unique := Dedupe(discovered)
	report.Unique = len(unique)
	logger.Info("found unique urls", "count", len(unique), "discovered", len(discovered))

	if len(unique) == 0 {
		return nil
	}
	// Records are read back from the session so partial output survives a panic.
	s.ScrapeDetails(ctx, unique)

	return nil
}

// Dedupe drops repeated URLs, keeping the first occurrence of each.
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
