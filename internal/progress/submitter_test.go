package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/media"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUploader struct {
	calls     int
	discarded int
}

// UploadAll fails every item whose name starts with "fail"
func (f *fakeUploader) UploadAll(ctx context.Context, items []media.Item) []media.Result {
	f.calls++
	out := make([]media.Result, len(items))
	for i, it := range items {
		out[i] = media.Result{Item: it}
		if len(it.Filename) >= 4 && it.Filename[:4] == "fail" {
			out[i].Err = errors.New("upload failed")
			continue
		}
		out[i].Key = "progress/" + it.Filename
		out[i].URL = "https://media.example.com/progress/" + it.Filename
	}
	return out
}

func (f *fakeUploader) Discard(ctx context.Context, results []media.Result) {
	f.discarded += len(media.Succeeded(results))
}

type fakePersister struct {
	rows    []*Payload
	err     error
	denyErr error
	checks  int
}

func (f *fakePersister) CheckSubmission(ctx context.Context, p *Payload) error {
	f.checks++
	return f.denyErr
}

func (f *fakePersister) SubmitProgress(ctx context.Context, p *Payload) (*domain.WorkProgressDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rows = append(f.rows, p)
	return &domain.WorkProgressDTO{ID: uuid.New(), IssueID: p.IssueID, Title: p.Title, Images: p.Images}, nil
}

func validForm() *Form {
	issueID := uuid.New()
	return &Form{IssueID: &issueID, Title: "Resurfacing", Description: "Half the lane done", ProgressPercentage: "50"}
}

func TestSubmit_EmptyDescriptionPersistsNothing(t *testing.T) {
	up := &fakeUploader{}
	store := &fakePersister{}
	s := NewSubmitter(up, store, zap.NewNop())

	form := validForm()
	form.Description = ""
	form.Media = []media.Item{{Filename: "a.jpg", Data: []byte("x")}}

	_, err := s.Submit(context.Background(), form)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, store.rows)
	assert.Equal(t, 0, up.calls, "no upload before validation passes")
	assert.Equal(t, "Resurfacing", form.Title, "form keeps its contents")
}

func TestSubmit_OneFailedUploadOfTwo(t *testing.T) {
	up := &fakeUploader{}
	store := &fakePersister{}
	s := NewSubmitter(up, store, zap.NewNop())

	var completed *domain.WorkProgressDTO
	s.OnComplete = func(r *domain.WorkProgressDTO) { completed = r }

	form := validForm()
	issueID := form.IssueID
	form.Media = []media.Item{
		{Filename: "ok.jpg", Data: []byte("1")},
		{Filename: "fail.jpg", Data: []byte("2")},
	}

	record, err := s.Submit(context.Background(), form)
	require.NoError(t, err)

	require.Len(t, store.rows, 1)
	assert.Equal(t, []string{"https://media.example.com/progress/ok.jpg"}, store.rows[0].Images)
	assert.Len(t, record.Images, 1)
	assert.Same(t, record, completed)

	assert.Empty(t, form.Title, "form resets after success")
	assert.Empty(t, form.Media)
	assert.Equal(t, issueID, form.IssueID)
}

func TestSubmit_PersistFailureKeepsForm(t *testing.T) {
	up := &fakeUploader{}
	rejected := errors.New("new row violates check constraint")
	s := NewSubmitter(up, &fakePersister{err: rejected}, zap.NewNop())
	called := false
	s.OnComplete = func(*domain.WorkProgressDTO) { called = true }

	form := validForm()
	form.Media = []media.Item{{Filename: "ok.jpg", Data: []byte("1")}}

	_, err := s.Submit(context.Background(), form)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, rejected.Error(), err.Error())
	assert.False(t, called)
	assert.Equal(t, "Resurfacing", form.Title)
	assert.Len(t, form.Media, 1)
	assert.Equal(t, 1, up.discarded, "uploaded media is cleaned up")
}

func TestSubmit_DeniedCallerUploadsNothing(t *testing.T) {
	up := &fakeUploader{}
	denied := errors.New("forbidden: progress can only be reported on work assigned to you")
	store := &fakePersister{denyErr: denied}
	s := NewSubmitter(up, store, zap.NewNop())

	form := validForm()
	form.Media = []media.Item{{Filename: "site.jpg", Data: []byte("1")}}

	_, err := s.Submit(context.Background(), form)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, 1, store.checks)
	assert.Equal(t, 0, up.calls, "no upload for a caller without access")
	assert.Equal(t, 0, up.discarded)
	assert.Empty(t, store.rows)
	assert.Len(t, form.Media, 1, "form keeps its contents")
}
