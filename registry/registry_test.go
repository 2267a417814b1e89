package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediakit/mediasched/errors"
	"github.com/mediakit/mediasched/job"
)

func noopHandler(ctx context.Context, payload json.RawMessage, progress func(int)) error {
	return nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	err := r.Register(job.TypeThumbnail, noopHandler)
	require.NoError(t, err)

	handler, ok := r.Get(job.TypeThumbnail)
	assert.True(t, ok)
	assert.NotNil(t, handler)

	_, ok = r.Get(job.TypeTranscode)
	assert.False(t, ok)
}

func TestRegistry_RegisterEmptyType(t *testing.T) {
	r := NewRegistry()

	err := r.Register("", noopHandler)
	assert.ErrorIs(t, err, errors.ErrEmptyJobType)
}

func TestRegistry_RegisterNilHandler(t *testing.T) {
	r := NewRegistry()

	err := r.Register(job.TypeThumbnail, nil)
	assert.ErrorIs(t, err, errors.ErrNilHandler)
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(job.TypeThumbnail, noopHandler))
	require.NoError(t, r.Register(job.TypeCleanup, noopHandler))

	types := r.List()
	assert.Len(t, types, 2)
	assert.Contains(t, types, job.TypeThumbnail)
	assert.Contains(t, types, job.TypeCleanup)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(job.TypeThumbnail, noopHandler))
	r.Remove(job.TypeThumbnail)

	_, ok := r.Get(job.TypeThumbnail)
	assert.False(t, ok)
}

func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(job.TypeThumbnail, noopHandler))
	require.NoError(t, r.Register(job.TypeCleanup, noopHandler))
	r.Clear()

	assert.Empty(t, r.List())
}

func TestRegistry_Overwrite(t *testing.T) {
	r := NewRegistry()

	called := ""
	first := func(ctx context.Context, payload json.RawMessage, progress func(int)) error {
		called = "first"
		return nil
	}
	second := func(ctx context.Context, payload json.RawMessage, progress func(int)) error {
		called = "second"
		return nil
	}

	require.NoError(t, r.Register(job.TypeThumbnail, first))
	require.NoError(t, r.Register(job.TypeThumbnail, second))

	handler, ok := r.Get(job.TypeThumbnail)
	require.True(t, ok)
	require.NoError(t, handler(context.Background(), nil, nil))
	assert.Equal(t, "second", called)
}
