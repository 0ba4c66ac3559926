package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	written, err := store.Put(ctx, "some-key", strings.NewReader("hello bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello bytes")), written)

	exists, err := store.Exists(ctx, "some-key")
	require.NoError(t, err)
	assert.True(t, exists)

	size, err := store.Size(ctx, "some-key")
	require.NoError(t, err)
	assert.Equal(t, int64(len("hello bytes")), size)

	r, err := store.Open(ctx, "some-key")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "hello bytes", string(data))

	require.NoError(t, store.Delete(ctx, "some-key"))
	exists, err = store.Exists(ctx, "some-key")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStoreMissingKey(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Size(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "absent"), ErrNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(ctx, "../escape", strings.NewReader("nope"))
	assert.Error(t, err)

	_, err = store.Open(ctx, "../../etc/passwd")
	assert.Error(t, err)
}

func TestLocalStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(ctx, "key", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = store.Put(ctx, "key", strings.NewReader("second value"))
	require.NoError(t, err)

	size, err := store.Size(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, int64(len("second value")), size)
}
