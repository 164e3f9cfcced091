package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/media"
	"github.com/civicworks/civic-api/internal/progress"
	"github.com/civicworks/civic-api/internal/service"
	"github.com/civicworks/civic-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubUploader fails every item whose filename is listed in failing
type stubUploader struct {
	failing   map[string]bool
	uploaded  int
	discarded int
}

func (u *stubUploader) UploadAll(_ context.Context, items []media.Item) []media.Result {
	u.uploaded += len(items)
	results := make([]media.Result, len(items))
	for i, item := range items {
		results[i] = media.Result{Item: item}
		if u.failing[item.Filename] {
			results[i].Err = errors.New("upload refused")
			continue
		}
		results[i].Key = "progress/" + item.Filename
		results[i].URL = "https://cdn.example.com/progress/" + item.Filename
	}
	return results
}

func (u *stubUploader) Discard(_ context.Context, results []media.Result) {
	u.discarded += len(media.Succeeded(results))
}

// awardedIssue sets up an issue whose tender was awarded to contractor
func awardedIssue(t *testing.T, svc *services, contractor *domain.Profile) (*domain.Issue, *domain.Tender) {
	t.Helper()
	admin := testutil.CreateProfile(t, svc.db, domain.UserTypeAdmin)
	issue := testutil.CreateIssue(t, svc.db, admin.ID, domain.StageDepartmentAssigned)
	tender := testutil.CreateTender(t, svc.db, &issue.ID, admin.ID, domain.TenderStatusOpen)
	bid := testutil.CreateBid(t, svc.db, tender.ID, contractor.ID, 1000)
	_, err := svc.tenders.Award(testutil.CallerContext(admin), tender.ID, &domain.AwardTenderRequest{BidID: bid.ID})
	require.NoError(t, err)
	return issue, tender
}

func TestSubmitProgress_AdvancesStage(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	contractor := testutil.CreateProfile(t, db, domain.UserTypeTender)
	issue, tender := awardedIssue(t, svc, contractor)
	ctx := testutil.CallerContext(contractor)

	first, err := svc.progress.SubmitProgress(ctx, &progress.Payload{
		TenderID:           &tender.ID,
		Title:              "Site prepared",
		Description:        "Barriers up",
		ProgressPercentage: 20,
		Status:             domain.ProgressInProgress,
	})
	require.NoError(t, err)
	require.NotNil(t, first.IssueID)
	assert.Equal(t, issue.ID, *first.IssueID)
	assert.Equal(t, domain.StageInProgress, loadIssue(t, db, issue.ID).WorkflowStage)

	_, err = svc.progress.SubmitProgress(ctx, &progress.Payload{
		IssueID:            &issue.ID,
		Title:              "Done",
		Description:        "Surface relaid",
		ProgressPercentage: 100,
		Status:             domain.ProgressCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageDepartmentReview, loadIssue(t, db, issue.ID).WorkflowStage)
}

func TestSubmitProgress_UnassignedContractorForbidden(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	contractor := testutil.CreateProfile(t, db, domain.UserTypeTender)
	stranger := testutil.CreateProfile(t, db, domain.UserTypeTender)
	issue, _ := awardedIssue(t, svc, contractor)

	_, err := svc.progress.SubmitProgress(testutil.CallerContext(stranger), &progress.Payload{
		IssueID:     &issue.ID,
		Title:       "Sneaky",
		Description: "Not my job",
		Status:      domain.ProgressInProgress,
	})
	assert.ErrorIs(t, err, service.ErrForbidden)

	var count int64
	require.NoError(t, db.Model(&domain.WorkProgress{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitter_PartialUploadFailureStoresRemainingImages(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	contractor := testutil.CreateProfile(t, db, domain.UserTypeTender)
	issue, _ := awardedIssue(t, svc, contractor)

	uploader := &stubUploader{failing: map[string]bool{"blurry.jpg": true}}
	submitter := progress.NewSubmitter(uploader, svc.progress, zap.NewNop())

	form := &progress.Form{
		IssueID:            &issue.ID,
		Title:              "Halfway",
		Description:        "Half the road done",
		ProgressPercentage: "50",
		Status:             "in_progress",
		MaterialsUsed:      "asphalt, gravel",
		LaborHours:         "12.5",
		Expenses:           "not a number",
		Media: []media.Item{
			{Filename: "before.jpg", ContentType: "image/jpeg", Data: []byte("a")},
			{Filename: "blurry.jpg", ContentType: "image/jpeg", Data: []byte("b")},
		},
	}

	dto, err := submitter.Submit(testutil.CallerContext(contractor), form)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/progress/before.jpg"}, dto.Images)
	assert.Equal(t, []string{"asphalt", "gravel"}, dto.MaterialsUsed)
	assert.InDelta(t, 12.5, dto.LaborHours, 0.001)
	assert.Zero(t, dto.Expenses)

	var stored domain.WorkProgress
	require.NoError(t, db.First(&stored, "id = ?", dto.ID).Error)
	assert.Len(t, stored.Images, 1)
	assert.Equal(t, "", form.Title, "form is reset after a successful submit")
}

func TestSubmitter_UnassignedContractorUploadsNothing(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	contractor := testutil.CreateProfile(t, db, domain.UserTypeTender)
	stranger := testutil.CreateProfile(t, db, domain.UserTypeTender)
	issue, _ := awardedIssue(t, svc, contractor)

	uploader := &stubUploader{}
	submitter := progress.NewSubmitter(uploader, svc.progress, zap.NewNop())
	form := &progress.Form{
		IssueID:     &issue.ID,
		Title:       "Report",
		Description: "Work",
		Media:       []media.Item{{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("a")}},
	}

	_, err := submitter.Submit(testutil.CallerContext(stranger), form)
	var perr *progress.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.Equal(t, "Report", form.Title)
	assert.Len(t, form.Media, 1)
	assert.Zero(t, uploader.uploaded, "media is not stored for a caller without access")
	assert.Zero(t, uploader.discarded)

	var count int64
	require.NoError(t, db.Model(&domain.WorkProgress{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestProgressReview(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	contractor := testutil.CreateProfile(t, db, domain.UserTypeTender)
	supervisor := testutil.CreateProfile(t, db, domain.UserTypeDepartmentAdmin)
	issue, _ := awardedIssue(t, svc, contractor)

	row, err := svc.progress.SubmitProgress(testutil.CallerContext(contractor), &progress.Payload{
		IssueID: &issue.ID, Title: "Week 1", Description: "Started", Status: domain.ProgressInProgress,
	})
	require.NoError(t, err)

	rating := 4
	_, err = svc.progress.Review(testutil.CallerContext(contractor), row.ID, &domain.ReviewProgressRequest{SupervisorNotes: "self review", SupervisorRating: &rating})
	assert.ErrorIs(t, err, service.ErrForbidden)

	reviewed, err := svc.progress.Review(testutil.CallerContext(supervisor), row.ID, &domain.ReviewProgressRequest{SupervisorNotes: "Good pace", SupervisorRating: &rating})
	require.NoError(t, err)
	assert.Equal(t, "Good pace", reviewed.SupervisorNotes)
	require.NotNil(t, reviewed.SupervisorRating)
	assert.Equal(t, 4, *reviewed.SupervisorRating)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, supervisor.ID, *reviewed.ReviewedBy)
}
