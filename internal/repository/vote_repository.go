package repository

import (
	"context"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Get returns the caller's vote on an issue, or nil when there is none
func (r *VoteRepository) Get(ctx context.Context, issueID, userID uuid.UUID) (*domain.IssueVote, error) {
	var votes []domain.IssueVote
	err := r.db.WithContext(ctx).
		Where("issue_id = ? AND user_id = ?", issueID, userID).
		Limit(1).
		Find(&votes).Error
	if err != nil || len(votes) == 0 {
		return nil, err
	}
	return &votes[0], nil
}

func (r *VoteRepository) Create(ctx context.Context, vote *domain.IssueVote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *VoteRepository) UpdateType(ctx context.Context, id uuid.UUID, voteType domain.VoteType) error {
	return r.db.WithContext(ctx).Model(&domain.IssueVote{}).
		Where("id = ?", id).
		Update("vote_type", voteType).Error
}

// Delete removes the vote and reports whether a row existed
func (r *VoteRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&domain.IssueVote{}, "id = ?", id)
	return result.RowsAffected > 0, result.Error
}
