package service_test

import (
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/service"
	"github.com/civicworks/civic-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluationCreate_OncePerEvaluator(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	admin := testutil.CreateProfile(t, db, domain.UserTypeAdmin)
	contractor := testutil.CreateProfile(t, db, domain.UserTypeTender)
	tender := testutil.CreateTender(t, db, nil, admin.ID, domain.TenderStatusClosed)
	bid := testutil.CreateBid(t, db, tender.ID, contractor.ID, 800)
	ctx := testutil.CallerContext(admin)

	req := &domain.CreateEvaluationRequest{
		BidID:           bid.ID,
		TechnicalScore:  80,
		FinancialScore:  80,
		ExperienceScore: 80,
		TimelineScore:   80,
		Recommendation:  domain.RecommendAccept,
	}
	dto, err := svc.evaluations.Create(ctx, tender.ID, req)
	require.NoError(t, err)
	assert.InDelta(t, 80, dto.TotalScore, 0.001)
	assert.Equal(t, admin.ID, dto.EvaluatorID)

	_, err = svc.evaluations.Create(ctx, tender.ID, req)
	assert.ErrorIs(t, err, service.ErrConflict)
}

func TestEvaluationCreate_ScoresBounded(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	admin := testutil.CreateProfile(t, db, domain.UserTypeAdmin)
	contractor := testutil.CreateProfile(t, db, domain.UserTypeTender)
	tender := testutil.CreateTender(t, db, nil, admin.ID, domain.TenderStatusClosed)
	bid := testutil.CreateBid(t, db, tender.ID, contractor.ID, 800)

	_, err := svc.evaluations.Create(testutil.CallerContext(admin), tender.ID, &domain.CreateEvaluationRequest{
		BidID:          bid.ID,
		TechnicalScore: 120,
		Recommendation: domain.RecommendReject,
	})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "technicalScore")
}

func TestEvaluationListByTender_OwnRowsForOthers(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	admin := testutil.CreateProfile(t, db, domain.UserTypeAdmin)
	reviewer := testutil.CreateProfile(t, db, domain.UserTypeAreaSuperAdmin)
	contractor := testutil.CreateProfile(t, db, domain.UserTypeTender)
	tender := testutil.CreateTender(t, db, nil, admin.ID, domain.TenderStatusClosed)
	bid := testutil.CreateBid(t, db, tender.ID, contractor.ID, 800)

	for _, p := range []*domain.Profile{admin, reviewer} {
		_, err := svc.evaluations.Create(testutil.CallerContext(p), tender.ID, &domain.CreateEvaluationRequest{
			BidID: bid.ID, TechnicalScore: 50, FinancialScore: 50, ExperienceScore: 50, TimelineScore: 50,
			Recommendation: domain.RecommendClarification,
		})
		require.NoError(t, err)
	}

	all, err := svc.evaluations.ListByTender(testutil.CallerContext(admin), tender.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.evaluations.ListByTender(testutil.CallerContext(reviewer), tender.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, reviewer.ID, own[0].EvaluatorID)
}
