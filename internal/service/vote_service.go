package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/civicworks/civic-api/internal/policy"
	"github.com/civicworks/civic-api/internal/repository"
	"github.com/civicworks/civic-api/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// VoteService keeps one vote per citizen per issue and maintains the issue's
// counters in the same transaction as the vote row.
type VoteService struct {
	issueRepo *repository.IssueRepository
	voteRepo  *repository.VoteRepository
	logger    *zap.Logger
	db        *gorm.DB
}

func NewVoteService(issueRepo *repository.IssueRepository, voteRepo *repository.VoteRepository, logger *zap.Logger, db *gorm.DB) *VoteService {
	return &VoteService{
		issueRepo: issueRepo,
		voteRepo:  voteRepo,
		logger:    logger,
		db:        db,
	}
}

// Cast records the caller's vote. With no existing vote it inserts one and
// increments the matching counter; with a vote of another type it changes
// the type and moves one count between counters; with the same type it is a
// no-op.
func (s *VoteService) Cast(ctx context.Context, issueID uuid.UUID, voteType domain.VoteType) (*domain.VoteDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceVote, Action: policy.ActionCreate, OwnerID: &caller.UserID}); err != nil {
		return nil, err
	}
	if !voteType.IsValid() {
		return nil, newValidationError("voteType", "must be upvote or downvote")
	}

	op := "cast"
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issueRepo := repository.NewIssueRepository(tx)
		voteRepo := repository.NewVoteRepository(tx)

		if _, err := issueRepo.GetByID(ctx, issueID); err != nil {
			return notFound(err, ErrIssueNotFound)
		}

		existing, err := voteRepo.Get(ctx, issueID, caller.UserID)
		if err != nil {
			return fmt.Errorf("failed to load vote: %w", err)
		}

		switch {
		case existing == nil:
			if err := voteRepo.Create(ctx, &domain.IssueVote{IssueID: issueID, UserID: caller.UserID, VoteType: voteType}); err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("%w: vote already recorded", ErrConflict)
				}
				return fmt.Errorf("failed to record vote: %w", err)
			}
			_, err = issueRepo.AdjustVoteCounters(ctx, issueID, &voteType, nil)
		case existing.VoteType != voteType:
			op = "change"
			old := existing.VoteType
			if err := voteRepo.UpdateType(ctx, existing.ID, voteType); err != nil {
				return fmt.Errorf("failed to change vote: %w", err)
			}
			_, err = issueRepo.AdjustVoteCounters(ctx, issueID, &voteType, &old)
		default:
			op = "noop"
		}
		if err != nil {
			return fmt.Errorf("failed to update vote counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if op != "noop" {
		telemetry.RecordVote(ctx, op, string(voteType))
	}
	return s.snapshot(ctx, issueID, caller.UserID, voteType)
}

// Retract removes the caller's vote and decrements its counter, floored at zero
func (s *VoteService) Retract(ctx context.Context, issueID uuid.UUID) (*domain.VoteDTO, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(policy.Request{Caller: caller, Resource: policy.ResourceVote, Action: policy.ActionDelete, OwnerID: &caller.UserID}); err != nil {
		return nil, err
	}

	var removed domain.VoteType
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		issueRepo := repository.NewIssueRepository(tx)
		voteRepo := repository.NewVoteRepository(tx)

		existing, err := voteRepo.Get(ctx, issueID, caller.UserID)
		if err != nil {
			return fmt.Errorf("failed to load vote: %w", err)
		}
		if existing == nil {
			return ErrVoteNotFound
		}

		deleted, err := voteRepo.Delete(ctx, existing.ID)
		if err != nil {
			return fmt.Errorf("failed to delete vote: %w", err)
		}
		if !deleted {
			return ErrVoteNotFound
		}
		removed = existing.VoteType
		// the issue may already be gone; zero rows is fine
		if _, err := issueRepo.AdjustVoteCounters(ctx, issueID, nil, &removed); err != nil {
			return fmt.Errorf("failed to update vote counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.RecordVote(ctx, "retract", string(removed))
	return s.snapshot(ctx, issueID, caller.UserID, "")
}

func (s *VoteService) snapshot(ctx context.Context, issueID, userID uuid.UUID, voteType domain.VoteType) (*domain.VoteDTO, error) {
	dto := &domain.VoteDTO{IssueID: issueID, UserID: userID, VoteType: voteType}
	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto, nil
		}
		return nil, fmt.Errorf("failed to reload issue: %w", err)
	}
	dto.Upvotes = issue.Upvotes
	dto.Downvotes = issue.Downvotes
	return dto, nil
}
