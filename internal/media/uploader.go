// Package media uploads attached files to storage and turns them into public URLs.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/civicworks/civic-api/internal/storage"
	"github.com/civicworks/civic-api/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrEmptyItem is reported for attachments without content
var ErrEmptyItem = errors.New("media item is empty")

// Item is one attached file
type Item struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result is the outcome of uploading one Item. Exactly one of URL and Err is set.
type Result struct {
	Item Item
	Key  string
	URL  string
	Err  error
}

// Succeeded returns the URLs of successful uploads, preserving input order
func Succeeded(results []Result) []string {
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			urls = append(urls, r.URL)
		}
	}
	return urls
}

// Failed counts the failed uploads
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Uploader stores items concurrently with bounded fan-out
type Uploader struct {
	store         storage.Storage
	publicBaseURL string
	folder        string
	concurrency   int
	logger        *zap.Logger
}

func NewUploader(store storage.Storage, publicBaseURL, folder string, concurrency int, logger *zap.Logger) *Uploader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Uploader{
		store:         store,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		folder:        folder,
		concurrency:   concurrency,
		logger:        logger,
	}
}

// UploadAll uploads every item and returns one result per item in input
// order. A failed item never stops the others.
func (u *Uploader) UploadAll(ctx context.Context, items []Item) []Result {
	results := make([]Result, len(items))
	if len(items) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(u.concurrency)
	for i := range items {
		g.Go(func() error {
			results[i] = u.upload(ctx, items[i])
			return nil
		})
	}
	_ = g.Wait()

	if failed := Failed(results); failed > 0 {
		u.logger.Warn("some media uploads failed",
			zap.Int("total", len(items)),
			zap.Int("failed", failed),
		)
	}
	return results
}

func (u *Uploader) upload(ctx context.Context, item Item) Result {
	res := Result{Item: item}
	if len(item.Data) == 0 {
		res.Err = fmt.Errorf("%s: %w", item.Filename, ErrEmptyItem)
		telemetry.RecordUpload(ctx, false)
		return res
	}

	key, _, err := u.store.Upload(ctx, u.folder, item.Filename, item.ContentType, bytes.NewReader(item.Data))
	if err != nil {
		u.logger.Warn("media upload failed", zap.String("filename", item.Filename), zap.Error(err))
		res.Err = err
		telemetry.RecordUpload(ctx, false)
		return res
	}

	res.Key = key
	res.URL = u.PublicURL(key)
	telemetry.RecordUpload(ctx, true)
	return res
}

// PublicURL maps a storage key to the URL clients fetch it from
func (u *Uploader) PublicURL(key string) string {
	return u.publicBaseURL + "/" + key
}

// Discard removes uploaded objects whose record could not be saved
func (u *Uploader) Discard(ctx context.Context, results []Result) {
	for _, r := range results {
		if r.Err != nil || r.Key == "" {
			continue
		}
		if err := u.store.Delete(ctx, r.Key); err != nil {
			u.logger.Warn("failed to discard orphaned media", zap.String("key", r.Key), zap.Error(err))
		}
	}
}
