package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	key, size, err := store.Upload(ctx, "progress", "Photo.JPG", "image/jpeg", bytes.NewReader([]byte("jpeg-bytes")))
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
	assert.True(t, strings.HasPrefix(key, "progress/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	rc, err := store.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Download(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("progress/2026/01/a.jpg"))
	assert.False(t, ValidKey(""))
	assert.False(t, ValidKey("/abs/path"))
	assert.False(t, ValidKey("a/../b"))
	assert.False(t, ValidKey("a//b"))
}

func TestNewKey(t *testing.T) {
	key := NewKey("/issues/", "x.PNG")
	assert.True(t, strings.HasPrefix(key, "issues/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.True(t, ValidKey(key))
}
