package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webatlas/sitemapper/internal/config"
	"github.com/webatlas/sitemapper/internal/fetcher"
	"github.com/webatlas/sitemapper/internal/jobs"
)

// stubFetcher serves one empty page for every URL.
type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, fetcher.Request) (fetcher.Result, error) {
	return fetcher.Result{HTML: "<html><body></body></html>"}, nil
}

func (stubFetcher) Close(context.Context) error { return nil }

func newTestServer(t *testing.T) (*Server, *jobs.Store) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Crawler.DiscoverSitemaps = false

	store := jobs.NewStore()
	runner := jobs.NewRunner(context.Background(), store, stubFetcher{}, cfg, nil, zap.NewNop())
	t.Cleanup(runner.Wait)

	return NewServer(store, runner, cfg, prometheus.NewRegistry(), zap.NewNop()), store
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_SubmitSitemap(t *testing.T) {
	srv, store := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/v1/sitemaps", `{"url":"https://a.test/"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		JobID     string `json:"job_id"`
		StatusURL string `json:"status_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	require.Equal(t, "/v1/sitemaps/"+resp.JobID, resp.StatusURL)

	job, err := store.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	require.Equal(t, "https://a.test/", job.RootURL)
}

func TestServer_SubmitSitemap_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing url", `{}`},
		{"blank url", `{"url":"   "}`},
		{"bad scheme", `{"url":"ftp://a.test/"}`},
		{"no host", `{"url":"https://"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/v1/sitemaps", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestServer_GetSitemap_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/v1/sitemaps/ghost", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GetSitemap_CompletedJob(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/v1/sitemaps", `{"url":"https://a.test/"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	var status statusResponse
	require.Eventually(t, func() bool {
		rec := doRequest(t, srv, http.MethodGet, "/v1/sitemaps/"+submitted.JobID, "")
		if rec.Code != http.StatusOK {
			return false
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		return status.Status == jobs.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, "https://a.test/", status.RootURL)
	require.Equal(t, 1, status.DiscoveredCount)
	require.NotEmpty(t, status.Logs)
	require.Len(t, status.Pages, 1)
	require.Contains(t, status.Sitemap, "a.test/")
	require.NotNil(t, status.Started)
	require.NotNil(t, status.Finished)
}

func TestServer_ListSitemaps(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, u := range []string{"https://a.test/", "https://b.test/"} {
		rec := doRequest(t, srv, http.MethodPost, "/v1/sitemaps", `{"url":"`+u+`"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	rec := doRequest(t, srv, http.MethodGet, "/v1/sitemaps", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs []listEntry `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 2)
	require.Equal(t, "https://a.test/", resp.Jobs[0].RootURL)
	require.Equal(t, "https://b.test/", resp.Jobs[1].RootURL)
}
