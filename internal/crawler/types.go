package crawler

import (
	"time"
)

// Class is the traversal category assigned to a URL at first discovery.
type Class string

// Traversal classes. Listing sections paginate content lazily and are
// granted a deeper depth budget plus scroll-to-load-more handling.
const (
	ClassStandard Class = "standard"
	ClassListing  Class = "listing"
)

// Entry is a frontier queue item. It exists only while queued or in flight.
type Entry struct {
	URL   string
	Depth int
	Class Class
}

// DiscoveredPage records a page at first discovery. First discovery wins:
// the record is immutable and created exactly once per normalized URL.
type DiscoveredPage struct {
	URL    string `json:"url"`
	Depth  int    `json:"depth"`
	Origin string `json:"origin,omitempty"`
	Class  Class  `json:"class"`
}

// Status is the terminal state of a crawl.
type Status string

// Crawl terminal states. A crawl truncated by the total-page cap still
// completes; only cancellation or an unusable fetcher fails it.
const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// EventKind labels entries in the crawl log.
type EventKind string

// Crawl log event kinds.
const (
	EventCrawlStart  EventKind = "crawl_start"
	EventPageFetched EventKind = "page_fetched"
	EventPageFailed  EventKind = "page_failed"
	EventTruncated   EventKind = "truncated"
	EventCancelled   EventKind = "cancelled"
	EventCrawlDone   EventKind = "crawl_done"
)

// Event is one timestamped entry in the crawl log.
type Event struct {
	TS   time.Time `json:"ts"`
	Kind EventKind `json:"kind"`
	URL  string    `json:"url,omitempty"`
	Note string    `json:"note,omitempty"`
}

// Report summarizes a finished crawl. It is created at crawl start,
// appended to throughout, and frozen at crawl end.
type Report struct {
	RootURL         string        `json:"root_url"`
	Events          []Event       `json:"events"`
	DiscoveredCount int           `json:"discovered_count"`
	RawLinksSeen    int64         `json:"raw_links_seen"`
	Elapsed         time.Duration `json:"elapsed"`
	Status          Status        `json:"status"`
	Reason          string        `json:"reason,omitempty"`
	Truncated       bool          `json:"truncated,omitempty"`
}

// Result is the artifact handed to downstream consumers: the discovered
// pages in first-discovery order, the inferred site tree, and the report.
type Result struct {
	Pages  []DiscoveredPage `json:"discovered_pages"`
	Tree   SiteTree         `json:"site_tree"`
	Report Report           `json:"report"`
}
