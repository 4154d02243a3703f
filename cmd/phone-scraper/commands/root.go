// Package commands holds the phone-scraper CLI.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "phone-scraper",
	Short:        "phone-scraper collects used phone listings from Dubizzle and OpenSooq.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional JSON5 config file merged over the environment.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
