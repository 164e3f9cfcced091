package repository

import (
	"context"

	"github.com/civicworks/civic-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EvaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Create inserts the evaluation. A second evaluation by the same evaluator
// of the same bid fails with gorm.ErrDuplicatedKey.
func (r *EvaluationRepository) Create(ctx context.Context, e *domain.TenderEvaluation) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EvaluationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TenderEvaluation, error) {
	var e domain.TenderEvaluation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EvaluationRepository) Update(ctx context.Context, e *domain.TenderEvaluation) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// ListByTender returns evaluations ordered by total score, optionally only one evaluator's
func (r *EvaluationRepository) ListByTender(ctx context.Context, tenderID uuid.UUID, evaluatorID *uuid.UUID) ([]domain.TenderEvaluation, error) {
	var rows []domain.TenderEvaluation
	query := r.db.WithContext(ctx).Where("tender_id = ?", tenderID)
	if evaluatorID != nil {
		query = query.Where("evaluator_id = ?", *evaluatorID)
	}
	err := query.Order("total_score DESC").Find(&rows).Error
	return rows, err
}
