package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civicworks/civic-api/internal/auth"
	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/http/handler"
	"github.com/civicworks/civic-api/internal/media"
	"github.com/civicworks/civic-api/internal/progress"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"github.com/civicworks/civic-api/internal/storage"
	"github.com/civicworks/civic-api/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testMediaBaseURL = "http://localhost:8080/media"

type testEnv struct {
	db       *gorm.DB
	store    storage.Storage
	mediaDir string
	tenders *service.TenderService

	issues      *handler.IssueHandler
	tenderH     *handler.TenderHandler
	assignments *handler.AssignmentHandler
	progress    *handler.ProgressHandler
	media       *handler.MediaHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop()

	issueRepo := repository.NewIssueRepository(db)
	areaRepo := repository.NewAreaRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	tenderRepo := repository.NewTenderRepository(db)
	bidRepo := repository.NewBidRepository(db)

	issueService := service.NewIssueService(issueRepo, areaRepo, deptRepo, assignmentRepo, false, log, db)
	voteService := service.NewVoteService(issueRepo, repository.NewVoteRepository(db), log, db)
	tenderService := service.NewTenderService(tenderRepo, issueRepo, deptRepo, bidRepo, log, db)
	bidService := service.NewBidService(bidRepo, tenderRepo, log)
	evaluationService := service.NewEvaluationService(repository.NewEvaluationRepository(db), tenderRepo, bidRepo, log)
	assignmentService := service.NewAssignmentService(assignmentRepo, issueRepo, log, db)
	progressService := service.NewProgressService(repository.NewProgressRepository(db), log, db)

	mediaDir := t.TempDir()
	store, err := storage.NewLocalStorage(mediaDir)
	require.NoError(t, err)
	uploader := media.NewUploader(store, testMediaBaseURL, "progress", 2, log)
	submitter := progress.NewSubmitter(uploader, progressService, log)

	return &testEnv{
		db:          db,
		store:       store,
		mediaDir:    mediaDir,
		tenders:     tenderService,
		issues:      handler.NewIssueHandler(issueService, voteService, progressService, log),
		tenderH:     handler.NewTenderHandler(tenderService, bidService, evaluationService, log),
		assignments: handler.NewAssignmentHandler(assignmentService, log),
		progress:    handler.NewProgressHandler(progressService, submitter, 1, log),
		media:       handler.NewMediaHandler(store, log),
	}
}

// serve routes a single request through chi so URL parameters resolve.
// A nil caller sends the request unauthenticated.
func serve(t *testing.T, method, pattern, target string, h http.HandlerFunc, caller *domain.Profile, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if caller != nil {
		req = req.WithContext(auth.WithUserContext(req.Context(), auth.FromProfile(caller)))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func serveJSON(t *testing.T, method, pattern, target string, h http.HandlerFunc, caller *domain.Profile, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return serve(t, method, pattern, target, h, caller, body, "application/json")
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}
