package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// Normalization errors. Both are dropped-and-logged conditions, never
// fatal to a crawl.
var (
	ErrMalformedURL      = errors.New("malformed url")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// assetExtensions lists path suffixes that name static assets rather than
// pages; links to them are discovered but never traversed.
var assetExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".ico": {},
	".webp": {}, ".css": {}, ".js": {}, ".pdf": {}, ".zip": {}, ".gz": {},
	".mp4": {}, ".mp3": {}, ".woff": {}, ".woff2": {},
}

// Normalize resolves raw against base and canonicalizes it into the
// deduplication key form: https scheme, lowercased host, default ports
// removed, fragment removed, trailing slash stripped except at the root,
// and the query dropped unless keepQuery is set.
//
// Normalization is idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(raw string, base *url.URL, keepQuery bool) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, raw)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	// One scheme per logical page: http and https variants collapse.
	u.Scheme = "https"

	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimSuffix(u.Host, ":80")
	u.Host = strings.TrimSuffix(u.Host, ":443")
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q has no host", ErrMalformedURL, raw)
	}

	u.Fragment = ""
	u.User = nil

	if u.Path == "" {
		u.Path = "/"
	} else if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	if keepQuery {
		u.RawQuery = u.Query().Encode()
	} else {
		u.RawQuery = ""
	}

	return u.String(), nil
}

// Key converts a normalized URL into its tree key, host followed by path
// ("a.test/" for the root, "a.test/about" elsewhere).
func Key(normalized string) (string, error) {
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, normalized)
	}
	p := u.Path
	if p == "" {
		p = "/"
	}
	return u.Host + p, nil
}

// InDomain reports whether host belongs to the crawled site: it must
// equal the root host or one of the configured allowed hosts.
func InDomain(host, rootHost string, allowed []string) bool {
	if host == rootHost {
		return true
	}
	for _, a := range allowed {
		if host == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// IsAssetPath reports whether the path names a static asset.
func IsAssetPath(p string) bool {
	_, ok := assetExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// PathSegments splits a URL path into its non-empty segments; the root
// path yields none.
func PathSegments(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
