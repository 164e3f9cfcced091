package repository_test

import (
	"context"
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueRepository_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewIssueRepository(db)
	ctx := context.Background()

	reporter := uuid.New()
	other := uuid.New()
	a := testutil.CreateIssue(t, db, reporter, domain.StageReported)
	b := testutil.CreateIssue(t, db, reporter, domain.StageAreaReview)
	testutil.CreateIssue(t, db, other, domain.StageAreaReview)

	_, err := repo.UpdateFields(ctx, b.ID, map[string]interface{}{"title": "Broken streetlight", "category": "lighting"})
	require.NoError(t, err)

	t.Run("by reporter", func(t *testing.T) {
		rows, total, err := repo.List(ctx, 1, 10, &repository.IssueFilters{ReporterID: &reporter}, repository.IssueSortByCreatedDesc)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, rows, 2)
	})

	t.Run("by stage", func(t *testing.T) {
		stage := domain.StageReported
		rows, total, err := repo.List(ctx, 1, 10, &repository.IssueFilters{Stage: &stage}, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, a.ID, rows[0].ID)
	})

	t.Run("search combines with other filters", func(t *testing.T) {
		q := "STREETLIGHT"
		rows, total, err := repo.List(ctx, 1, 10, &repository.IssueFilters{SearchQuery: &q, ReporterID: &other}, "")
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, rows)

		rows, total, err = repo.List(ctx, 1, 10, &repository.IssueFilters{SearchQuery: &q}, "")
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, b.ID, rows[0].ID)
	})

	t.Run("pagination keeps the total", func(t *testing.T) {
		rows, total, err := repo.List(ctx, 2, 2, nil, repository.IssueSortByCreatedAsc)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, rows, 1)
	})
}

func TestIssueRepository_SortByVotes(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewIssueRepository(db)
	ctx := context.Background()

	low := testutil.CreateIssue(t, db, uuid.New(), domain.StageReported)
	high := testutil.CreateIssue(t, db, uuid.New(), domain.StageReported)

	up := domain.VoteUp
	for i := 0; i < 3; i++ {
		_, err := repo.AdjustVoteCounters(ctx, high.ID, &up, nil)
		require.NoError(t, err)
	}
	_, err := repo.AdjustVoteCounters(ctx, low.ID, &up, nil)
	require.NoError(t, err)

	rows, _, err := repo.List(ctx, 1, 10, nil, repository.IssueSortByVotesDesc)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, high.ID, rows[0].ID)
	assert.Equal(t, 3, rows[0].Upvotes)
}

func TestIssueRepository_AdjustVoteCounters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewIssueRepository(db)
	ctx := context.Background()
	issue := testutil.CreateIssue(t, db, uuid.New(), domain.StageReported)

	up, down := domain.VoteUp, domain.VoteDown

	n, err := repo.AdjustVoteCounters(ctx, issue.ID, &up, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// switch the vote from up to down
	_, err = repo.AdjustVoteCounters(ctx, issue.ID, &down, &up)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)
	assert.Equal(t, 1, got.Downvotes)

	// decrementing an empty counter stays at zero
	_, err = repo.AdjustVoteCounters(ctx, issue.ID, nil, &up)
	require.NoError(t, err)
	got, err = repo.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)

	n, err = repo.AdjustVoteCounters(ctx, uuid.New(), &up, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.AdjustVoteCounters(ctx, issue.ID, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIssueRepository_ListAwaitingTriage(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewIssueRepository(db)
	ctx := context.Background()

	waiting := testutil.CreateIssue(t, db, uuid.New(), domain.StageAreaReview)
	_, err := repo.UpdateFields(ctx, waiting.ID, map[string]interface{}{"area": "North"})
	require.NoError(t, err)

	// no area text, nothing to match on
	testutil.CreateIssue(t, db, uuid.New(), domain.StageAreaReview)

	assigned := testutil.CreateIssue(t, db, uuid.New(), domain.StageAreaReview)
	_, err = repo.UpdateFields(ctx, assigned.ID, map[string]interface{}{"area": "North", "current_assignee_id": uuid.New()})
	require.NoError(t, err)

	// routed by hand to an area that has no admin yet
	routed := testutil.CreateIssue(t, db, uuid.New(), domain.StageAreaReview)
	_, err = repo.UpdateFields(ctx, routed.ID, map[string]interface{}{"area": "North"})
	require.NoError(t, err)
	areaID := uuid.New()
	require.NoError(t, repository.NewAssignmentRepository(db).Create(ctx, &domain.IssueAssignment{
		IssueID:        routed.ID,
		AssignmentType: domain.AssignmentAdminToArea,
		AssignedBy:     uuid.New(),
		AreaID:         &areaID,
		Status:         domain.AssignmentStatusActive,
	}))

	rows, err := repo.ListAwaitingTriage(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, waiting.ID, rows[0].ID)
}

func TestIssueRepository_ClaimTriage(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewIssueRepository(db)
	ctx := context.Background()

	areaID, assignee := uuid.New(), uuid.New()

	open := testutil.CreateIssue(t, db, uuid.New(), domain.StageAreaReview)
	n, err := repo.ClaimTriage(ctx, open.ID, areaID, assignee)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.ClaimTriage(ctx, open.ID, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, n, "an assigned issue is not claimed twice")

	stored, err := repo.GetByID(ctx, open.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CurrentAssigneeID)
	assert.Equal(t, assignee, *stored.CurrentAssigneeID)
	require.NotNil(t, stored.AssignedAreaID)
	assert.Equal(t, areaID, *stored.AssignedAreaID)

	moved := testutil.CreateIssue(t, db, uuid.New(), domain.StageDepartmentAssigned)
	n, err = repo.ClaimTriage(ctx, moved.ID, areaID, assignee)
	require.NoError(t, err)
	assert.Zero(t, n, "issues past area review are left alone")
}

func TestVoteRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewVoteRepository(db)
	ctx := context.Background()

	issue := testutil.CreateIssue(t, db, uuid.New(), domain.StageReported)
	user := uuid.New()

	vote, err := repo.Get(ctx, issue.ID, user)
	require.NoError(t, err)
	assert.Nil(t, vote)

	require.NoError(t, repo.Create(ctx, &domain.IssueVote{IssueID: issue.ID, UserID: user, VoteType: domain.VoteUp}))
	err = repo.Create(ctx, &domain.IssueVote{IssueID: issue.ID, UserID: user, VoteType: domain.VoteDown})
	assert.Error(t, err, "second vote by the same user must violate the unique index")

	vote, err = repo.Get(ctx, issue.ID, user)
	require.NoError(t, err)
	require.NotNil(t, vote)
	assert.Equal(t, domain.VoteUp, vote.VoteType)

	require.NoError(t, repo.UpdateType(ctx, vote.ID, domain.VoteDown))
	vote, err = repo.Get(ctx, issue.ID, user)
	require.NoError(t, err)
	assert.Equal(t, domain.VoteDown, vote.VoteType)

	deleted, err := repo.Delete(ctx, vote.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, vote.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestAssignmentRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewAssignmentRepository(db)
	ctx := context.Background()

	issue := testutil.CreateIssue(t, db, uuid.New(), domain.StageAreaReview)
	admin := uuid.New()
	deptAdmin := uuid.New()

	first := &domain.IssueAssignment{
		IssueID:        issue.ID,
		AssignmentType: domain.AssignmentAreaToDepartment,
		AssignedBy:     admin,
		AssignedTo:     &deptAdmin,
		Status:         domain.AssignmentStatusActive,
	}
	require.NoError(t, repo.Create(ctx, first))

	other := &domain.IssueAssignment{
		IssueID:        issue.ID,
		AssignmentType: domain.AssignmentAdminToArea,
		AssignedBy:     admin,
		Status:         domain.AssignmentStatusActive,
	}
	require.NoError(t, repo.Create(ctx, other))

	t.Run("involving user", func(t *testing.T) {
		rows, total, err := repo.List(ctx, 1, 10, repository.AssignmentFilters{InvolvingUserID: &deptAdmin})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, first.ID, rows[0].ID)

		stranger := uuid.New()
		_, total, err = repo.List(ctx, 1, 10, repository.AssignmentFilters{IssueID: &issue.ID, InvolvingUserID: &stranger})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("close active only touches the given types", func(t *testing.T) {
		n, err := repo.CloseActive(ctx, issue.ID, []domain.AssignmentType{domain.AssignmentAreaToDepartment}, domain.AssignmentStatusReassigned)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := repo.GetByID(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AssignmentStatusActive, got.Status)

		n, err = repo.CloseActive(ctx, issue.ID, nil, domain.AssignmentStatusReassigned)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("close is one-shot", func(t *testing.T) {
		changed, err := repo.Close(ctx, other.ID, domain.AssignmentStatusCompleted)
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = repo.Close(ctx, other.ID, domain.AssignmentStatusCancelled)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("history in insertion order", func(t *testing.T) {
		rows, err := repo.ListByIssue(ctx, issue.ID)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		n, err := repo.CountByIssueAndType(ctx, issue.ID, domain.AssignmentAreaToDepartment)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
