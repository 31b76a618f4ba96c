// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/webatlas/sitemapper/internal/crawler"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownSeconds int `mapstructure:"shutdown_seconds"`
}

// CrawlerConfig governs crawl traversal behavior.
type CrawlerConfig struct {
	MaxDepth            int      `mapstructure:"max_depth"`
	MaxListingDepth     int      `mapstructure:"max_listing_depth"`
	Concurrency         int      `mapstructure:"concurrency"`
	MaxTotalPages       int      `mapstructure:"max_total_pages"`
	ListingPathPatterns []string `mapstructure:"listing_path_patterns"`
	AllowedHosts        []string `mapstructure:"allowed_hosts"`
	KeepQuery           bool     `mapstructure:"keep_query"`
	DiscoverSitemaps    bool     `mapstructure:"discover_sitemaps"`
}

// FetcherConfig selects and tunes the page-fetch adapter.
type FetcherConfig struct {
	// Mode is "static" for plain HTTP or "headless" for browser rendering.
	Mode             string  `mapstructure:"mode"`
	UserAgent        string  `mapstructure:"user_agent"`
	TimeoutSeconds   int     `mapstructure:"timeout_seconds"`
	MaxConcurrency   int     `mapstructure:"max_concurrency"`
	DomainQPS        float64 `mapstructure:"domain_qps"`
	ScrollRounds     int     `mapstructure:"scroll_rounds"`
	ScrollIdleRounds int     `mapstructure:"scroll_idle_rounds"`
	ScrollPauseMs    int     `mapstructure:"scroll_pause_ms"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk and environment. An empty path skips the
// config file and relies on defaults plus SITEMAPPER_* env vars.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEMAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_seconds", 10)

	v.SetDefault("crawler.max_depth", 4)
	v.SetDefault("crawler.max_listing_depth", 8)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.max_total_pages", 500)
	v.SetDefault("crawler.listing_path_patterns", []string{
		"/blog*", "/blogs*", "/news*", "/collections*", "/products*",
	})
	v.SetDefault("crawler.allowed_hosts", []string{})
	v.SetDefault("crawler.keep_query", false)
	v.SetDefault("crawler.discover_sitemaps", true)

	v.SetDefault("fetcher.mode", "static")
	v.SetDefault("fetcher.user_agent", "sitemapper/1.0 (+https://github.com/webatlas/sitemapper)")
	v.SetDefault("fetcher.timeout_seconds", 20)
	v.SetDefault("fetcher.max_concurrency", 2)
	v.SetDefault("fetcher.domain_qps", 2)
	v.SetDefault("fetcher.scroll_rounds", 6)
	v.SetDefault("fetcher.scroll_idle_rounds", 2)
	v.SetDefault("fetcher.scroll_pause_ms", 1000)

	v.SetDefault("logging.development", false)
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535]")
	}
	switch c.Fetcher.Mode {
	case "static", "headless":
	default:
		return fmt.Errorf("fetcher.mode must be \"static\" or \"headless\", got %q", c.Fetcher.Mode)
	}
	if c.Fetcher.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetcher.timeout_seconds must be > 0")
	}
	if c.Crawler.MaxDepth < 0 {
		return fmt.Errorf("crawler.max_depth must be >= 0")
	}
	if c.Crawler.MaxListingDepth < c.Crawler.MaxDepth {
		return fmt.Errorf("crawler.max_listing_depth must be >= crawler.max_depth")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.MaxTotalPages <= 0 {
		return fmt.Errorf("crawler.max_total_pages must be > 0")
	}
	return nil
}

// CrawlConfig projects the service configuration onto a single crawl of
// rootURL. maxDepth <= 0 keeps the configured default.
func (c Config) CrawlConfig(rootURL string, maxDepth int) crawler.Config {
	depth := c.Crawler.MaxDepth
	if maxDepth > 0 {
		depth = maxDepth
	}
	listingDepth := c.Crawler.MaxListingDepth
	if listingDepth < depth {
		listingDepth = depth
	}
	return crawler.Config{
		RootURL:             rootURL,
		AllowedHosts:        c.Crawler.AllowedHosts,
		MaxDepth:            depth,
		MaxListingDepth:     listingDepth,
		Concurrency:         c.Crawler.Concurrency,
		MaxTotalPages:       c.Crawler.MaxTotalPages,
		ListingPathPatterns: c.Crawler.ListingPathPatterns,
		KeepQuery:           c.Crawler.KeepQuery,
		DiscoverSitemaps:    c.Crawler.DiscoverSitemaps,
		SeedTimeout:         c.FetchTimeout(),
	}
}

// FetchTimeout returns the fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetcher.TimeoutSeconds) * time.Second
}

// ScrollPause returns the pause between listing scroll rounds.
func (c Config) ScrollPause() time.Duration {
	return time.Duration(c.Fetcher.ScrollPauseMs) * time.Millisecond
}
