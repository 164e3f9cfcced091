package handler_test

import (
	"net/http"
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenderHandler_BidAndAward(t *testing.T) {
	env := newTestEnv(t)
	dept := testutil.CreateDepartment(t, env.db, "Roads", nil)
	manager := testutil.CreateProfile(t, env.db, domain.UserTypeDepartmentAdmin, testutil.InDepartment(dept.ID))
	citizen := testutil.CreateProfile(t, env.db, domain.UserTypeUser)
	winner := testutil.CreateProfile(t, env.db, domain.UserTypeTender)
	loser := testutil.CreateProfile(t, env.db, domain.UserTypeTender)
	issue := testutil.CreateIssue(t, env.db, citizen.ID, domain.StageDepartmentAssigned)

	rr := serveJSON(t, http.MethodPost, "/tenders", "/tenders", env.tenderH.Create, manager, domain.CreateTenderRequest{
		IssueID: &issue.ID,
		Title:   "Resurface Main Street",
		Budget:  25000,
		Open:    true,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tender := decode[domain.TenderDTO](t, rr)
	assert.Equal(t, domain.TenderStatusOpen, tender.Status)
	require.NotNil(t, tender.DepartmentID)
	assert.Equal(t, dept.ID, *tender.DepartmentID)

	bidsPath := "/tenders/" + tender.ID.String() + "/bids"

	rr = serveJSON(t, http.MethodPost, "/tenders/{id}/bids", bidsPath, env.tenderH.CreateBid, citizen, domain.CreateBidRequest{Amount: 100})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serveJSON(t, http.MethodPost, "/tenders/{id}/bids", bidsPath, env.tenderH.CreateBid, winner, domain.CreateBidRequest{Amount: 20000, EstimatedDays: 10})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	winningBid := decode[domain.BidDTO](t, rr)

	rr = serveJSON(t, http.MethodPost, "/tenders/{id}/bids", bidsPath, env.tenderH.CreateBid, winner, domain.CreateBidRequest{Amount: 19000})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serveJSON(t, http.MethodPost, "/tenders/{id}/bids", bidsPath, env.tenderH.CreateBid, loser, domain.CreateBidRequest{Amount: 24000})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(t, http.MethodGet, "/tenders/{id}/bids", bidsPath, env.tenderH.ListBids, manager, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.BidDTO](t, rr), 2)

	rr = serve(t, http.MethodGet, "/tenders/{id}/bids", bidsPath, env.tenderH.ListBids, loser, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.BidDTO](t, rr), 1, "contractors only see their own bid")

	awardPath := "/tenders/" + tender.ID.String() + "/award"
	rr = serveJSON(t, http.MethodPost, "/tenders/{id}/award", awardPath, env.tenderH.Award, manager, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serveJSON(t, http.MethodPost, "/tenders/{id}/award", awardPath, env.tenderH.Award, manager, domain.AwardTenderRequest{BidID: winningBid.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	awarded := decode[domain.TenderDTO](t, rr)
	assert.Equal(t, domain.TenderStatusAwarded, awarded.Status)
	require.NotNil(t, awarded.AwardedTo)
	assert.Equal(t, winner.ID, *awarded.AwardedTo)

	var stored domain.Issue
	require.NoError(t, env.db.First(&stored, "id = ?", issue.ID).Error)
	assert.Equal(t, domain.StageContractorAssigned, stored.WorkflowStage)
	require.NotNil(t, stored.CurrentAssigneeID)
	assert.Equal(t, winner.ID, *stored.CurrentAssigneeID)

	rr = serveJSON(t, http.MethodPost, "/tenders/{id}/award", awardPath, env.tenderH.Award, manager, domain.AwardTenderRequest{BidID: winningBid.ID})
	require.Equal(t, http.StatusOK, rr.Code)

	var handOffs int64
	require.NoError(t, env.db.Model(&domain.IssueAssignment{}).
		Where("issue_id = ? AND assignment_type = ?", issue.ID, domain.AssignmentDepartmentToContractor).
		Count(&handOffs).Error)
	assert.Equal(t, int64(1), handOffs)
}

func TestTenderHandler_StatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateProfile(t, env.db, domain.UserTypeAdmin)
	tender := testutil.CreateTender(t, env.db, nil, admin.ID, domain.TenderStatusOpen)
	path := "/tenders/" + tender.ID.String() + "/status"

	rr := serveJSON(t, http.MethodPut, "/tenders/{id}/status", path, env.tenderH.UpdateStatus, admin,
		domain.UpdateTenderStatusRequest{Status: domain.TenderStatusCancelled})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, domain.TenderStatusCancelled, decode[domain.TenderDTO](t, rr).Status)

	rr = serveJSON(t, http.MethodPut, "/tenders/{id}/status", path, env.tenderH.UpdateStatus, admin,
		domain.UpdateTenderStatusRequest{Status: domain.TenderStatusOpen})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, domain.ErrorTypeInvalidTransition, decode[domain.APIError](t, rr).Type)
}

func TestTenderHandler_Evaluations(t *testing.T) {
	env := newTestEnv(t)
	admin := testutil.CreateProfile(t, env.db, domain.UserTypeAdmin)
	contractor := testutil.CreateProfile(t, env.db, domain.UserTypeTender)
	tender := testutil.CreateTender(t, env.db, nil, admin.ID, domain.TenderStatusClosed)
	bid := testutil.CreateBid(t, env.db, tender.ID, contractor.ID, 900)
	path := "/tenders/" + tender.ID.String() + "/evaluations"

	req := domain.CreateEvaluationRequest{
		BidID:           bid.ID,
		TechnicalScore:  90,
		FinancialScore:  70,
		ExperienceScore: 80,
		TimelineScore:   60,
		Recommendation:  domain.RecommendAccept,
	}
	rr := serveJSON(t, http.MethodPost, "/tenders/{id}/evaluations", path, env.tenderH.CreateEvaluation, admin, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	eval := decode[domain.EvaluationDTO](t, rr)

	rr = serveJSON(t, http.MethodPost, "/tenders/{id}/evaluations", path, env.tenderH.CreateEvaluation, admin, req)
	assert.Equal(t, http.StatusConflict, rr.Code)

	bad := req
	bad.TechnicalScore = 150
	rr = serveJSON(t, http.MethodPost, "/tenders/{id}/evaluations", path, env.tenderH.CreateEvaluation, admin, bad)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[domain.APIError](t, rr).Errors, "technicalScore")

	rr = serve(t, http.MethodGet, "/evaluations/{id}", "/evaluations/"+eval.ID.String(), env.tenderH.GetEvaluation, admin, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, eval.TotalScore, decode[domain.EvaluationDTO](t, rr).TotalScore)

	rr = serve(t, http.MethodGet, "/evaluations/{id}", "/evaluations/"+eval.ID.String(), env.tenderH.GetEvaluation, contractor, nil, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
