package api

import (
	"time"

	"github.com/webatlas/sitemapper/internal/crawler"
	"github.com/webatlas/sitemapper/internal/jobs"
)

// submitRequest is the body of POST /v1/sitemaps.
type submitRequest struct {
	URL      string `json:"url"`
	MaxDepth int    `json:"max_depth,omitempty"`
}

// submitResponse acknowledges an accepted job.
type submitResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
}

// statusResponse reports a job's progress and, once finished, the crawl
// artifact. SiteTree keeps the array-vs-object leaf discriminator.
type statusResponse struct {
	JobID           string                   `json:"job_id"`
	RootURL         string                   `json:"root_url"`
	Status          jobs.Status              `json:"status"`
	Submitted       time.Time                `json:"submitted_at"`
	Started         *time.Time               `json:"started_at,omitempty"`
	Finished        *time.Time               `json:"finished_at,omitempty"`
	DurationSeconds float64                  `json:"duration_seconds,omitempty"`
	Error           string                   `json:"error,omitempty"`
	Logs            []crawler.Event          `json:"logs,omitempty"`
	DiscoveredCount int                      `json:"discovered_urls_count"`
	RawLinksSeen    int64                    `json:"total_links_found"`
	Pages           []crawler.DiscoveredPage `json:"discovered_pages,omitempty"`
	Sitemap         crawler.SiteTree         `json:"sitemap,omitempty"`
}

// listEntry is one row of the job listing.
type listEntry struct {
	JobID     string      `json:"job_id"`
	RootURL   string      `json:"root_url"`
	Status    jobs.Status `json:"status"`
	Submitted time.Time   `json:"submitted_at"`
}

func toStatusResponse(job jobs.Job) statusResponse {
	resp := statusResponse{
		JobID:     job.ID,
		RootURL:   job.RootURL,
		Status:    job.Status,
		Submitted: job.Submitted,
		Started:   job.Started,
		Finished:  job.Finished,
		Error:     job.ErrorText,
	}
	if job.Started != nil && job.Finished != nil {
		resp.DurationSeconds = job.Finished.Sub(*job.Started).Seconds()
	}
	if job.Result != nil {
		resp.Logs = job.Result.Report.Events
		resp.DiscoveredCount = job.Result.Report.DiscoveredCount
		resp.RawLinksSeen = job.Result.Report.RawLinksSeen
		resp.Pages = job.Result.Pages
		resp.Sitemap = job.Result.Tree
	}
	return resp
}
