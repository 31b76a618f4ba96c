package crawler

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SeedFinder discovers extra starting URLs beyond the crawl root, such as
// entries advertised in /sitemap.xml or robots.txt.
type SeedFinder interface {
	Find(ctx context.Context, root string) ([]string, error)
}

const (
	seedMaxBodyBytes = 10 * 1024 * 1024
	seedMaxURLs      = 500
)

// SitemapSeedFinder reads /sitemap.xml (following one level of sitemap
// index indirection) and the Sitemap: lines of robots.txt.
type SitemapSeedFinder struct {
	client *http.Client
	logger *zap.Logger
}

// NewSitemapSeedFinder builds a finder with its own HTTP client.
func NewSitemapSeedFinder(timeout time.Duration, logger *zap.Logger) *SitemapSeedFinder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SitemapSeedFinder{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type sitemapXML struct {
	XMLName xml.Name     `xml:"urlset"`
	URLs    []sitemapLoc `xml:"url"`
}

type sitemapIndexXML struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []sitemapLoc `xml:"sitemap"`
}

type sitemapLoc struct {
	Loc string `xml:"loc"`
}

// Find returns the URLs advertised by the site's sitemaps. A missing
// sitemap is not an error; the crawl proceeds from the root alone.
func (s *SitemapSeedFinder) Find(ctx context.Context, root string) ([]string, error) {
	base, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("parse root: %w", err)
	}

	sitemaps := []string{base.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()}
	sitemaps = append(sitemaps, s.robotsSitemaps(ctx, base)...)

	var found []string
	seen := make(map[string]struct{})
	for _, sm := range sitemaps {
		urls, nested := s.readSitemap(ctx, sm)
		// Follow sitemap-index entries one level down.
		for _, child := range nested {
			childURLs, _ := s.readSitemap(ctx, child)
			urls = append(urls, childURLs...)
		}
		for _, u := range urls {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			found = append(found, u)
			if len(found) >= seedMaxURLs {
				return found, nil
			}
		}
	}
	return found, nil
}

// readSitemap fetches and parses one sitemap document, returning page
// URLs and, for index documents, nested sitemap URLs.
func (s *SitemapSeedFinder) readSitemap(ctx context.Context, sitemapURL string) (urls, nested []string) {
	body, err := s.get(ctx, sitemapURL)
	if err != nil {
		s.logger.Debug("sitemap fetch failed", zap.String("url", sitemapURL), zap.Error(err))
		return nil, nil
	}

	var set sitemapXML
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		for _, loc := range set.URLs {
			if u := strings.TrimSpace(loc.Loc); u != "" {
				urls = append(urls, u)
			}
		}
		return urls, nil
	}

	var idx sitemapIndexXML
	if err := xml.Unmarshal(body, &idx); err == nil {
		for _, loc := range idx.Sitemaps {
			if u := strings.TrimSpace(loc.Loc); u != "" {
				nested = append(nested, u)
			}
		}
	}
	return nil, nested
}

// robotsSitemaps parses the Sitemap: lines of /robots.txt.
func (s *SitemapSeedFinder) robotsSitemaps(ctx context.Context, base *url.URL) []string {
	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	body, err := s.get(ctx, robotsURL)
	if err != nil {
		return nil
	}
	var out []string
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < len("sitemap:") || !strings.EqualFold(line[:len("sitemap:")], "sitemap:") {
			continue
		}
		if u := strings.TrimSpace(line[len("sitemap:"):]); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func (s *SitemapSeedFinder) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, seedMaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}
