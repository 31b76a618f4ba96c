// Package jobs tracks sitemap generation jobs for the service API. Jobs
// live in process memory; the persistence layer is an external
// collaborator and polling the status endpoint is the delivery contract.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/webatlas/sitemapper/internal/crawler"
)

// Status is the lifecycle state of a sitemap job.
type Status string

// Job status values.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned for unknown job IDs.
var ErrNotFound = errors.New("job not found")

// Job is the metadata kept for each submitted sitemap request.
type Job struct {
	ID        string          `json:"id"`
	RootURL   string          `json:"root_url"`
	MaxDepth  int             `json:"max_depth,omitempty"`
	Status    Status          `json:"status"`
	Submitted time.Time       `json:"submitted_at"`
	Started   *time.Time      `json:"started_at,omitempty"`
	Finished  *time.Time      `json:"finished_at,omitempty"`
	ErrorText string          `json:"error_text,omitempty"`
	Result    *crawler.Result `json:"result,omitempty"`
}

// Store is an in-memory job registry, safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	jobs  map[string]Job
	order []string
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]Job)}
}

// Create stores a new job in queued status.
func (s *Store) Create(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	job.Status = StatusQueued
	if job.Submitted.IsZero() {
		job.Submitted = time.Now().UTC()
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	return nil
}

// SetStatus updates the lifecycle state, stamping start and finish times.
func (s *Store) SetStatus(_ context.Context, jobID string, status Status, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Status = status
	job.ErrorText = errText
	now := time.Now().UTC()
	if status == StatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if isTerminal(status) {
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	return nil
}

// SetResult attaches the crawl artifact to a job.
func (s *Store) SetResult(_ context.Context, jobID string, result *crawler.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	job.Result = result
	s.jobs[jobID] = job
	return nil
}

// Get fetches a job by ID.
func (s *Store) Get(_ context.Context, jobID string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// List returns all jobs in submission order.
func (s *Store) List(_ context.Context) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}

func isTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}
