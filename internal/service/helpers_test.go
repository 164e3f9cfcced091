package service_test

import (
	"testing"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type services struct {
	db          *gorm.DB
	issues      *service.IssueService
	votes       *service.VoteService
	tenders     *service.TenderService
	bids        *service.BidService
	assignments *service.AssignmentService
	progress    *service.ProgressService
	evaluations *service.EvaluationService
	profiles    *service.ProfileService
	areas       *service.AreaService
	departments *service.DepartmentService
}

func newServices(db *gorm.DB, enforceForwardOnly bool) *services {
	log := zap.NewNop()
	issueRepo := repository.NewIssueRepository(db)
	areaRepo := repository.NewAreaRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	tenderRepo := repository.NewTenderRepository(db)
	bidRepo := repository.NewBidRepository(db)

	return &services{
		db:          db,
		issues:      service.NewIssueService(issueRepo, areaRepo, deptRepo, assignmentRepo, enforceForwardOnly, log, db),
		votes:       service.NewVoteService(issueRepo, repository.NewVoteRepository(db), log, db),
		tenders:     service.NewTenderService(tenderRepo, issueRepo, deptRepo, bidRepo, log, db),
		bids:        service.NewBidService(bidRepo, tenderRepo, log),
		assignments: service.NewAssignmentService(assignmentRepo, issueRepo, log, db),
		progress:    service.NewProgressService(repository.NewProgressRepository(db), log, db),
		evaluations: service.NewEvaluationService(repository.NewEvaluationRepository(db), tenderRepo, bidRepo, log),
		profiles:    service.NewProfileService(profileRepo, areaRepo, deptRepo, log, db),
		areas:       service.NewAreaService(areaRepo, log, db),
		departments: service.NewDepartmentService(deptRepo, areaRepo, log, db),
	}
}

func loadIssue(t *testing.T, db *gorm.DB, id uuid.UUID) *domain.Issue {
	t.Helper()
	var issue domain.Issue
	require.NoError(t, db.First(&issue, "id = ?", id).Error)
	return &issue
}

func assignmentsOf(t *testing.T, db *gorm.DB, issueID uuid.UUID, typ domain.AssignmentType) []domain.IssueAssignment {
	t.Helper()
	var rows []domain.IssueAssignment
	require.NoError(t, db.Where("issue_id = ? AND assignment_type = ?", issueID, typ).Order("created_at ASC").Find(&rows).Error)
	return rows
}
