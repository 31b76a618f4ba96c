// Package progress defines the event stream emitted by running crawls
// and the hub that fans it out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the crawl milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageCrawlStart  Stage = "CRAWL_START"
	StagePageFetched Stage = "PAGE_FETCHED"
	StagePageFailed  Stage = "PAGE_FAILED"
	StageTreeBuilt   Stage = "TREE_BUILT"
	StageCrawlDone   Stage = "CRAWL_DONE"
	StageCrawlError  Stage = "CRAWL_ERROR"
)

// Event captures one milestone of a running crawl.
type Event struct {
	// CrawlID identifies the crawl run.
	CrawlID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// URL is the page URL for per-page stages.
	URL string
	// Depth is the crawl depth for per-page stages.
	Depth int
	// Links is the raw link count observed on a fetched page.
	Links int
	// Dur captures fetch or crawl latency.
	Dur time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.CrawlID == uuid.Nil {
		return errors.New("crawl id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageCrawlStart, StageTreeBuilt, StageCrawlDone, StageCrawlError:
	case StagePageFetched, StagePageFailed:
		if e.URL == "" {
			return fmt.Errorf("%s requires url", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
