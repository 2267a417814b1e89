package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakit/mediasched/job"
)

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b := NewBridge(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBridge_SaveAndLoadAll(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	j := job.New(job.TypeTranscode, []byte(`{"media_id":"m1"}`), job.PriorityHigh, 3)
	require.NoError(t, b.Save(ctx, j))

	loaded, err := b.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[j.ID]
	require.NotNil(t, got)
	assert.Equal(t, j.Type, got.Type)
	assert.Equal(t, j.Priority, got.Priority)
	assert.Equal(t, job.StatusPending, got.Status)
	assert.JSONEq(t, `{"media_id":"m1"}`, string(got.Payload))
}

func TestBridge_SaveOverwrites(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	j := job.New(job.TypeThumbnail, nil, job.PriorityNormal, 3)
	require.NoError(t, b.Save(ctx, j))

	j.Status = job.StatusFailed
	j.RetryCount = 3
	j.LastError = "boom"
	require.NoError(t, b.Save(ctx, j))

	loaded, err := b.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, job.StatusFailed, loaded[j.ID].Status)
	assert.Equal(t, 3, loaded[j.ID].RetryCount)
	assert.Equal(t, "boom", loaded[j.ID].LastError)
}

func TestBridge_Delete(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	j := job.New(job.TypeCleanup, nil, job.PriorityIdle, 1)
	require.NoError(t, b.Save(ctx, j))
	require.NoError(t, b.Delete(ctx, j.ID))

	loaded, err := b.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	// Deleting a missing record is not an error
	assert.NoError(t, b.Delete(ctx, "missing"))
}

func TestBridge_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.db")
	ctx := context.Background()

	b := NewBridge(path)
	require.NoError(t, b.Connect(ctx))

	j := job.New(job.TypePreload, nil, job.PriorityLow, 3)
	require.NoError(t, b.Save(ctx, j))
	require.NoError(t, b.Close())

	reopened := NewBridge(path)
	require.NoError(t, reopened.Connect(ctx))
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, j.ID, loaded[j.ID].ID)
}

func TestBridge_NotConnected(t *testing.T) {
	b := NewBridge(filepath.Join(t.TempDir(), "jobs.db"))

	assert.Error(t, b.Health())
	assert.Error(t, b.Save(context.Background(), job.New(job.TypeCleanup, nil, job.PriorityIdle, 1)))
	_, err := b.LoadAll(context.Background())
	assert.Error(t, err)
}

func TestBridge_Type(t *testing.T) {
	assert.Equal(t, "sqlite", NewBridge("x.db").Type())
}
