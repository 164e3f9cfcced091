package service_test

import (
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/service"
	"github.com/civicworks/civic-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteCastAndRetract_RestoresCounters(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	citizen := testutil.CreateProfile(t, db, domain.UserTypeUser)
	issue := testutil.CreateIssue(t, db, citizen.ID, domain.StageAreaReview)
	ctx := testutil.CallerContext(citizen)

	dto, err := svc.votes.Cast(ctx, issue.ID, domain.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, dto.Upvotes)
	assert.Equal(t, 0, dto.Downvotes)

	dto, err = svc.votes.Retract(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, dto.Upvotes)
	assert.Equal(t, 0, dto.Downvotes)

	var count int64
	require.NoError(t, db.Model(&domain.IssueVote{}).Where("issue_id = ?", issue.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestVoteCast_SameTypeIsNoop(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	citizen := testutil.CreateProfile(t, db, domain.UserTypeUser)
	issue := testutil.CreateIssue(t, db, citizen.ID, domain.StageAreaReview)
	ctx := testutil.CallerContext(citizen)

	_, err := svc.votes.Cast(ctx, issue.ID, domain.VoteUp)
	require.NoError(t, err)
	dto, err := svc.votes.Cast(ctx, issue.ID, domain.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, dto.Upvotes)
}

func TestVoteCast_ChangeMovesCount(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	citizen := testutil.CreateProfile(t, db, domain.UserTypeUser)
	other := testutil.CreateProfile(t, db, domain.UserTypeUser)
	issue := testutil.CreateIssue(t, db, citizen.ID, domain.StageAreaReview)

	_, err := svc.votes.Cast(testutil.CallerContext(other), issue.ID, domain.VoteUp)
	require.NoError(t, err)
	_, err = svc.votes.Cast(testutil.CallerContext(citizen), issue.ID, domain.VoteUp)
	require.NoError(t, err)

	dto, err := svc.votes.Cast(testutil.CallerContext(citizen), issue.ID, domain.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 1, dto.Upvotes)
	assert.Equal(t, 1, dto.Downvotes)
	assert.Equal(t, domain.VoteDown, dto.VoteType)
}

func TestVoteRetract_NeverNegative(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	citizen := testutil.CreateProfile(t, db, domain.UserTypeUser)
	issue := testutil.CreateIssue(t, db, citizen.ID, domain.StageAreaReview)
	ctx := testutil.CallerContext(citizen)

	_, err := svc.votes.Cast(ctx, issue.ID, domain.VoteDown)
	require.NoError(t, err)

	// counter drifted out of band
	require.NoError(t, db.Model(&domain.Issue{}).Where("id = ?", issue.ID).Update("downvotes", 0).Error)

	dto, err := svc.votes.Retract(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, dto.Downvotes)
	assert.Equal(t, 0, loadIssue(t, db, issue.ID).Downvotes)
}

func TestVoteRetract_WithoutVote(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	citizen := testutil.CreateProfile(t, db, domain.UserTypeUser)
	issue := testutil.CreateIssue(t, db, citizen.ID, domain.StageAreaReview)

	_, err := svc.votes.Retract(testutil.CallerContext(citizen), issue.ID)
	assert.ErrorIs(t, err, service.ErrVoteNotFound)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestVoteCast_Validation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newServices(db, false)

	citizen := testutil.CreateProfile(t, db, domain.UserTypeUser)
	issue := testutil.CreateIssue(t, db, citizen.ID, domain.StageAreaReview)

	_, err := svc.votes.Cast(testutil.CallerContext(citizen), issue.ID, domain.VoteType("sideways"))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
