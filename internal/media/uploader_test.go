package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore fails uploads whose filename contains "bad"
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string]string
	inFlight int32
	peak     int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]string{}}
}

func (f *fakeStore) Upload(ctx context.Context, folder, filename, contentType string, data io.Reader) (string, int64, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if strings.Contains(filename, "bad") {
		return "", 0, errors.New("upload rejected")
	}
	b, _ := io.ReadAll(data)
	key := folder + "/" + filename
	f.mu.Lock()
	f.objects[key] = string(b)
	f.mu.Unlock()
	return key, int64(len(b)), nil
}

func (f *fakeStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	return nil
}

func TestUploadAll_PartialFailure(t *testing.T) {
	store := newFakeStore()
	u := NewUploader(store, "https://media.example.com/", "progress", 4, zap.NewNop())

	results := u.UploadAll(context.Background(), []Item{
		{Filename: "one.jpg", ContentType: "image/jpeg", Data: []byte("1")},
		{Filename: "bad.jpg", ContentType: "image/jpeg", Data: []byte("2")},
	})

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "https://media.example.com/progress/one.jpg", results[0].URL)
	assert.Error(t, results[1].Err)
	assert.Empty(t, results[1].URL)

	assert.Equal(t, []string{"https://media.example.com/progress/one.jpg"}, Succeeded(results))
	assert.Equal(t, 1, Failed(results))
}

func TestUploadAll_EmptyItemFails(t *testing.T) {
	u := NewUploader(newFakeStore(), "http://localhost/media", "progress", 2, zap.NewNop())

	results := u.UploadAll(context.Background(), []Item{{Filename: "empty.jpg"}})

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrEmptyItem)
}

func TestUploadAll_BoundsConcurrency(t *testing.T) {
	store := newFakeStore()
	u := NewUploader(store, "http://localhost/media", "progress", 2, zap.NewNop())

	items := make([]Item, 8)
	for i := range items {
		items[i] = Item{Filename: string(rune('a'+i)) + ".jpg", Data: []byte("x")}
	}
	results := u.UploadAll(context.Background(), items)

	assert.Len(t, Succeeded(results), 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&store.peak), int32(2))
}

func TestDiscard_RemovesSuccessfulUploads(t *testing.T) {
	store := newFakeStore()
	u := NewUploader(store, "http://localhost/media", "progress", 2, zap.NewNop())

	results := u.UploadAll(context.Background(), []Item{
		{Filename: "keep.jpg", Data: []byte("1")},
		{Filename: "bad.jpg", Data: []byte("2")},
	})
	require.Len(t, store.objects, 1)

	u.Discard(context.Background(), results)
	assert.Empty(t, store.objects)
}

func TestUploadAll_NoItems(t *testing.T) {
	u := NewUploader(newFakeStore(), "http://localhost/media", "progress", 2, zap.NewNop())
	assert.Empty(t, u.UploadAll(context.Background(), nil))
}
