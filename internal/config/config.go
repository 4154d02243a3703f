// Package config loads scraper settings from the environment and an optional
// JSON5 file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/browser"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/database"
	"github.com/abdelrhmanmousa/Multi-site-Product-Scaper/internal/scraper"
)

type Config struct {
	Scraper  ScraperConfig  `json:"scraper"`
	Sites    SitesConfig    `json:"sites"`
	Browser  BrowserConfig  `json:"browser"`
	Output   OutputConfig   `json:"output"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Server   ServerConfig   `json:"server"`
	Metrics  MetricsConfig  `json:"metrics"`
	Logging  LoggingConfig  `json:"logging"`
}

type ScraperConfig struct {
	Queries       []string `json:"queries"`
	Sites         []string `json:"sites"`
	MaxPages      int      `json:"max_pages"`
	QueryDelayMin Duration `json:"query_delay_min"`
	QueryDelayMax Duration `json:"query_delay_max"`
}

type SitesConfig struct {
	Dubizzle SiteConfig `json:"dubizzle"`
	OpenSooq SiteConfig `json:"opensooq"`
}

type SiteConfig struct {
	DelayMin      Duration `json:"delay_min"`
	DelayMax      Duration `json:"delay_max"`
	SearchTimeout Duration `json:"search_timeout"`
	DetailTimeout Duration `json:"detail_timeout"`
}

type BrowserConfig struct {
	// Headless can only be switched off through BROWSER_HEADLESS or the CLI
	// flag; file values are merged and false is a zero value.
	Headless       bool     `json:"headless"`
	Timeout        Duration `json:"timeout"`
	SettleDelay    Duration `json:"settle_delay"`
	ViewportWidth  int      `json:"viewport_width"`
	ViewportHeight int      `json:"viewport_height"`
	UserAgent      string   `json:"user_agent"`
	AcceptLanguage string   `json:"accept_language"`
	TimezoneID     string   `json:"timezone_id"`
	Locale         string   `json:"locale"`
	ProxyServer    string   `json:"proxy_server"`
}

type OutputConfig struct {
	Path string `json:"path"`
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	URL      string `json:"url"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
	MaxConns int    `json:"max_conns"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Stream   string `json:"stream"`
	MaxLen   int64  `json:"max_len"`
}

type ServerConfig struct {
	Addr            string   `json:"addr"`
	ReadTimeout     Duration `json:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
	QueueSize       int      `json:"queue_size"`
	AllowedOrigins  []string `json:"allowed_origins"`
}

// MetricsConfig controls the standalone metrics listener used by one-shot
// scrapes. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `json:"addr"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Load builds the configuration from environment variables and defaults.
func Load() (*Config, error) {
	dubizzle := scraper.DefaultDubizzleConfig()
	opensooq := scraper.DefaultOpenSooqConfig()
	defaults := browser.DefaultOptions()

	cfg := &Config{
		Scraper: ScraperConfig{
			Queries:       getStringSliceOrDefault("SCRAPER_QUERIES", []string{"iphone 13", "samsung s22"}),
			Sites:         getStringSliceOrDefault("SCRAPER_SITES", []string{"dubizzle", "opensooq"}),
			MaxPages:      getIntOrDefault("SCRAPER_MAX_PAGES", 2),
			QueryDelayMin: getDurationOrDefault("SCRAPER_QUERY_DELAY_MIN", 2*time.Second),
			QueryDelayMax: getDurationOrDefault("SCRAPER_QUERY_DELAY_MAX", 4*time.Second),
		},
		Sites: SitesConfig{
			Dubizzle: SiteConfig{
				DelayMin:      getDurationOrDefault("DUBIZZLE_DELAY_MIN", dubizzle.DelayMin),
				DelayMax:      getDurationOrDefault("DUBIZZLE_DELAY_MAX", dubizzle.DelayMax),
				SearchTimeout: getDurationOrDefault("DUBIZZLE_SEARCH_TIMEOUT", dubizzle.SearchTimeout),
				DetailTimeout: getDurationOrDefault("DUBIZZLE_DETAIL_TIMEOUT", dubizzle.DetailTimeout),
			},
			OpenSooq: SiteConfig{
				DelayMin:      getDurationOrDefault("OPENSOOQ_DELAY_MIN", opensooq.DelayMin),
				DelayMax:      getDurationOrDefault("OPENSOOQ_DELAY_MAX", opensooq.DelayMax),
				SearchTimeout: getDurationOrDefault("OPENSOOQ_SEARCH_TIMEOUT", opensooq.SearchTimeout),
				DetailTimeout: getDurationOrDefault("OPENSOOQ_DETAIL_TIMEOUT", opensooq.DetailTimeout),
			},
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", defaults.Headless),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", defaults.Timeout),
			SettleDelay:    getDurationOrDefault("BROWSER_SETTLE_DELAY", defaults.SettleDelay),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", defaults.ViewportWidth),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", defaults.ViewportHeight),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaults.UserAgent),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", defaults.AcceptLanguage),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", defaults.TimezoneID),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", defaults.Locale),
			ProxyServer:    getEnvOrDefault("BROWSER_PROXY", ""),
		},
		Output: OutputConfig{
			Path: getEnvOrDefault("OUTPUT_PATH", "used_phones_scraped_data.json"),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			URL:      getEnvOrDefault("DATABASE_URL", ""),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "phone_listings"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: getIntOrDefault("DB_MAX_CONNS", 4),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("REDIS_ENABLED", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "phone_listings"),
			MaxLen:   int64(getIntOrDefault("REDIS_STREAM_MAX_LEN", 0)),
		},
		Server: ServerConfig{
			Addr:            getEnvOrDefault("SERVER_ADDR", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			QueueSize:       getIntOrDefault("SERVER_QUEUE_SIZE", 100),
			AllowedOrigins:  getStringSliceOrDefault("SERVER_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Metrics: MetricsConfig{
			Addr: getEnvOrDefault("METRICS_ADDR", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Scraper.Queries) == 0 {
		return fmt.Errorf("at least one query is required")
	}

	if len(c.Scraper.Sites) == 0 {
		return fmt.Errorf("at least one site is required")
	}

	for _, site := range c.Scraper.Sites {
		if !scraper.IsKnownSite(site) {
			return fmt.Errorf("%w: %q", scraper.ErrUnknownSite, site)
		}
	}

	if c.Scraper.MaxPages < 1 {
		return fmt.Errorf("SCRAPER_MAX_PAGES must be at least 1")
	}

	if c.Scraper.QueryDelayMin.Duration > c.Scraper.QueryDelayMax.Duration {
		return fmt.Errorf("SCRAPER_QUERY_DELAY_MIN cannot be greater than SCRAPER_QUERY_DELAY_MAX")
	}

	for name, site := range map[string]SiteConfig{"dubizzle": c.Sites.Dubizzle, "opensooq": c.Sites.OpenSooq} {
		if site.DelayMin.Duration > site.DelayMax.Duration {
			return fmt.Errorf("%s delay_min cannot be greater than delay_max", name)
		}
	}

	if strings.TrimSpace(c.Output.Path) == "" {
		return fmt.Errorf("output path is required")
	}

	if c.Redis.Enabled && c.Redis.Stream == "" {
		return fmt.Errorf("REDIS_STREAM is required when redis is enabled")
	}

	return nil
}

// SiteConfigs returns the per-site settings keyed the way scraper.Variants
// expects.
func (c *Config) SiteConfigs() map[string]scraper.SiteConfig {
	return map[string]scraper.SiteConfig{
		"dubizzle": c.Sites.Dubizzle.scraperConfig(),
		"opensooq": c.Sites.OpenSooq.scraperConfig(),
	}
}

func (s SiteConfig) scraperConfig() scraper.SiteConfig {
	return scraper.SiteConfig{
		DelayMin:      s.DelayMin.Duration,
		DelayMax:      s.DelayMax.Duration,
		SearchTimeout: s.SearchTimeout.Duration,
		DetailTimeout: s.DetailTimeout.Duration,
	}
}

func (c *Config) BrowserOptions() *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Browser.Headless
	if c.Browser.Timeout.Duration > 0 {
		opts.Timeout = c.Browser.Timeout.Duration
	}
	opts.SettleDelay = c.Browser.SettleDelay.Duration
	if c.Browser.ViewportWidth > 0 && c.Browser.ViewportHeight > 0 {
		opts.ViewportWidth = c.Browser.ViewportWidth
		opts.ViewportHeight = c.Browser.ViewportHeight
	}
	if c.Browser.UserAgent != "" {
		opts.UserAgent = c.Browser.UserAgent
	}
	if c.Browser.AcceptLanguage != "" {
		opts.AcceptLanguage = c.Browser.AcceptLanguage
	}
	if c.Browser.TimezoneID != "" {
		opts.TimezoneID = c.Browser.TimezoneID
	}
	if c.Browser.Locale != "" {
		opts.Locale = c.Browser.Locale
	}
	opts.ProxyServer = c.Browser.ProxyServer
	return opts
}

func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		URL:      c.Database.URL,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Database: c.Database.DBName,
		SSLMode:  c.Database.SSLMode,
		MaxConns: int32(c.Database.MaxConns),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return Duration{d}
		}
	}
	return Duration{defaultValue}
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
