package crawler

import (
	"fmt"
	"net/url"
	"time"
)

// Config captures every knob that influences a single crawl run. One
// Config, one Engine, one crawl; nothing here is shared across crawls.
type Config struct {
	RootURL             string
	AllowedHosts        []string
	MaxDepth            int
	MaxListingDepth     int
	Concurrency         int
	MaxTotalPages       int
	ListingPathPatterns []string
	KeepQuery           bool
	DiscoverSitemaps    bool
	SeedTimeout         time.Duration
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.RootURL == "" {
		return fmt.Errorf("crawler: root url must be set")
	}
	u, err := url.Parse(c.RootURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("crawler: root url %q is not a valid absolute URL", c.RootURL)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("crawler: max_depth must be >= 0")
	}
	if c.MaxListingDepth < c.MaxDepth {
		return fmt.Errorf("crawler: max_listing_depth must be >= max_depth")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("crawler: concurrency must be > 0")
	}
	if c.MaxTotalPages <= 0 {
		return fmt.Errorf("crawler: max_total_pages must be > 0")
	}
	return nil
}
