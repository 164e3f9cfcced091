package progress

import (
	"context"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/media"
	"github.com/civicworks/civic-api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Uploader stores attached media and reports one result per item
type Uploader interface {
	UploadAll(ctx context.Context, items []media.Item) []media.Result
	Discard(ctx context.Context, results []media.Result)
}

// Persister writes a payload as one record in a single transaction.
// CheckSubmission rejects callers who may not report on the target, before
// any media is uploaded.
type Persister interface {
	CheckSubmission(ctx context.Context, p *Payload) error
	SubmitProgress(ctx context.Context, p *Payload) (*domain.WorkProgressDTO, error)
}

// PersistenceError wraps a rejected insert. Its message is the underlying
// error's, unchanged.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// Submitter runs the submission flow: validate, upload, build, persist
type Submitter struct {
	uploader  Uploader
	persister Persister
	logger    *zap.Logger
	// OnComplete, when set, receives the stored record after a successful submit
	OnComplete func(*domain.WorkProgressDTO)
}

func NewSubmitter(uploader Uploader, persister Persister, logger *zap.Logger) *Submitter {
	return &Submitter{
		uploader:  uploader,
		persister: persister,
		logger:    logger,
	}
}

// Submit stores the form as one progress record. Invalid forms fail with
// *ValidationError and callers without access to the target fail with
// *PersistenceError, both before any upload. Failed uploads are dropped and the
// record keeps the rest. On success the form is reset; on any error it is
// left as it was so the caller can retry.
func (s *Submitter) Submit(ctx context.Context, form *Form) (*domain.WorkProgressDTO, error) {
	ctx, span := telemetry.Tracer("").Start(ctx, "progress.submit")
	defer span.End()

	if err := form.Validate(); err != nil {
		span.SetStatus(codes.Error, "validation")
		telemetry.RecordSubmission(ctx, "invalid")
		return nil, err
	}

	if err := s.persister.CheckSubmission(ctx, BuildPayload(form, nil)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rejected")
		telemetry.RecordSubmission(ctx, "rejected")
		return nil, &PersistenceError{Err: err}
	}

	results := s.uploader.UploadAll(ctx, form.Media)
	urls := media.Succeeded(results)
	if failed := media.Failed(results); failed > 0 {
		s.logger.Warn("progress submission continues without failed uploads",
			zap.Int("uploaded", len(urls)),
			zap.Int("failed", failed),
		)
	}
	span.SetAttributes(
		attribute.Int("media.attached", len(form.Media)),
		attribute.Int("media.uploaded", len(urls)),
	)

	record, err := s.persister.SubmitProgress(ctx, BuildPayload(form, urls))
	if err != nil {
		s.uploader.Discard(ctx, results)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist")
		telemetry.RecordSubmission(ctx, "failed")
		return nil, &PersistenceError{Err: err}
	}

	telemetry.RecordSubmission(ctx, "persisted")
	s.logger.Info("progress submitted",
		zap.String("progress_id", record.ID.String()),
		zap.Int("images", len(record.Images)),
	)

	form.Reset()
	if s.OnComplete != nil {
		s.OnComplete(record)
	}
	return record, nil
}
