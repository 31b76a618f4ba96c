package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaticFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/next">next</a></body></html>`)
	}))
	defer srv.Close()

	f, err := NewStaticFetcher(StaticOptions{Timeout: 2 * time.Second}, zap.NewNop())
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close(context.Background())) }()

	res, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	require.Contains(t, res.HTML, `href="/next"`)
	require.Nil(t, res.Links)
}

func TestStaticFetcher_FetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f, err := NewStaticFetcher(StaticOptions{Timeout: 2 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNetwork)
}

func TestStaticFetcher_FetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	f, err := NewStaticFetcher(StaticOptions{Timeout: 50 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), Request{URL: srv.URL})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestStaticFetcher_UnreachableHost(t *testing.T) {
	f, err := NewStaticFetcher(StaticOptions{Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), Request{URL: "http://127.0.0.1:1/"})
	require.Error(t, err)
}

func TestStaticFetcher_UserAgentForwarded(t *testing.T) {
	gotUA := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA <- r.UserAgent()
		fmt.Fprint(w, "<html></html>")
	}))
	defer srv.Close()

	f, err := NewStaticFetcher(StaticOptions{
		UserAgent: "sitemapper-test/1.0",
		Timeout:   2 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)
	require.Equal(t, "sitemapper-test/1.0", <-gotUA)
}
