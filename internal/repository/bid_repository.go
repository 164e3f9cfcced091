package repository

import (
	"context"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) Create(ctx context.Context, bid *domain.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	var bid domain.Bid
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&bid).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

// ListByTender returns a tender's bids, optionally only those from one contractor
func (r *BidRepository) ListByTender(ctx context.Context, tenderID uuid.UUID, contractorID *uuid.UUID) ([]domain.Bid, error) {
	var bids []domain.Bid
	query := r.db.WithContext(ctx).Where("tender_id = ?", tenderID)
	if contractorID != nil {
		query = query.Where("contractor_id = ?", *contractorID)
	}
	err := query.Order("amount ASC").Find(&bids).Error
	return bids, err
}

// SettleAward accepts the winning bid and rejects every other bid still submitted
func (r *BidRepository) SettleAward(ctx context.Context, tenderID, winningBidID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.Bid{}).
		Where("id = ? AND tender_id = ?", winningBidID, tenderID).
		Update("status", domain.BidStatusAccepted).Error; err != nil {
		return err
	}
	return db.Model(&domain.Bid{}).
		Where("tender_id = ? AND id <> ? AND status = ?", tenderID, winningBidID, domain.BidStatusSubmitted).
		Update("status", domain.BidStatusRejected).Error
}
