package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webatlas/sitemapper/internal/crawler"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, Job{ID: "j1", RootURL: "https://a.test/", MaxDepth: 3}))

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, StatusQueued, job.Status)
	require.False(t, job.Submitted.IsZero())
	require.Nil(t, job.Started)
	require.Nil(t, job.Finished)

	require.Error(t, store.Create(ctx, Job{ID: "j1"}), "duplicate IDs must be rejected")
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore()
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_StatusTransitions(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, Job{ID: "j1", RootURL: "https://a.test/"}))

	require.NoError(t, store.SetStatus(ctx, "j1", StatusRunning, ""))
	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, StatusRunning, job.Status)
	require.NotNil(t, job.Started)
	require.Nil(t, job.Finished)

	require.NoError(t, store.SetStatus(ctx, "j1", StatusFailed, "cancelled"))
	job, err = store.Get(ctx, "j1")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, job.Status)
	require.Equal(t, "cancelled", job.ErrorText)
	require.NotNil(t, job.Finished)

	require.ErrorIs(t, store.SetStatus(ctx, "ghost", StatusRunning, ""), ErrNotFound)
}

func TestStore_SetResult(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, Job{ID: "j1", RootURL: "https://a.test/"}))

	result := &crawler.Result{
		Pages: []crawler.DiscoveredPage{{URL: "https://a.test/", Depth: 0}},
	}
	require.NoError(t, store.SetResult(ctx, "j1", result))

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	require.NotNil(t, job.Result)
	require.Len(t, job.Result.Pages, 1)

	require.ErrorIs(t, store.SetResult(ctx, "ghost", result), ErrNotFound)
}

func TestStore_ListPreservesSubmissionOrder(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	for _, id := range []string{"j1", "j2", "j3"} {
		require.NoError(t, store.Create(ctx, Job{ID: id, RootURL: "https://a.test/"}))
	}

	listed := store.List(ctx)
	require.Len(t, listed, 3)
	require.Equal(t, "j1", listed[0].ID)
	require.Equal(t, "j2", listed[1].ID)
	require.Equal(t, "j3", listed[2].ID)
}
