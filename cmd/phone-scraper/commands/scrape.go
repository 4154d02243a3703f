package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/config"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/models"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/orchestrator"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/pkg/logger"
)

var scrapeFlags struct {
	queries  []string
	sites    []string
	pages    int
	output   string
	headless bool
}

func init() {
	f := scrapeCmd.Flags()
	f.StringArrayVarP(&scrapeFlags.queries, "query", "q", nil, "Search query; repeat for several.")
	f.StringSliceVarP(&scrapeFlags.sites, "site", "s", nil, "Site to scrape (dubizzle, opensooq); repeat for several.")
	f.IntVarP(&scrapeFlags.pages, "pages", "p", 0, "Search result pages per query.")
	f.StringVarP(&scrapeFlags.output, "output", "o", "", "Path of the JSON output file.")
	f.BoolVar(&scrapeFlags.headless, "headless", true, "Run the browser without a window.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--query <q>]... [--site <s>]... [--pages <n>] [--output <file>]",
	Short: "Scrapes every configured site once and writes the combined records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyScrapeFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
		ctx := cmd.Context()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.close(); err != nil {
				log.Warn("failed to close sinks", "error", err)
			}
		}()

		if cfg.Metrics.Addr != "" {
			srv := &http.Server{
				Addr:              cfg.Metrics.Addr,
				Handler:           promhttp.HandlerFor(a.metrics.Registry, promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				log.Info("metrics listener started", "addr", cfg.Metrics.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("metrics listener failed", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
		}

		res, err := a.run(ctx, cfg.Scraper.Queries, cfg.Scraper.Sites, cfg.Scraper.MaxPages, a.sink(cfg.Output.Path))
		if res != nil {
			printSummary(cmd.OutOrStdout(), res, cfg.Output.Path)
		}
		return err
	},
}

func applyScrapeFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("query") {
		cfg.Scraper.Queries = scrapeFlags.queries
	}
	if flags.Changed("site") {
		cfg.Scraper.Sites = scrapeFlags.sites
	}
	if flags.Changed("pages") {
		cfg.Scraper.MaxPages = scrapeFlags.pages
	}
	if flags.Changed("output") {
		cfg.Output.Path = scrapeFlags.output
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = scrapeFlags.headless
	}
}

func printSummary(w io.Writer, res *orchestrator.Result, outputPath string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SITE\tOUTCOME\tQUERIES\tDISCOVERED\tUNIQUE\tRECORDS\tDEGRADED\tERROR")
	for _, v := range res.Variants {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			v.Site, v.Outcome, v.Queries, v.Discovered, v.Unique, v.Records, v.Degraded, v.Error)
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d records (%d degraded) in %s",
		len(res.Records), models.CountDegraded(res.Records), res.FinishedAt.Sub(res.StartedAt).Round(time.Second))
	if len(res.Records) > 0 {
		fmt.Fprintf(w, ", saved to %s", outputPath)
	}
	fmt.Fprintln(w)
}
