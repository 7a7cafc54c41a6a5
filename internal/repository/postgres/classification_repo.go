package postgres

import (
	"context"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"gorm.io/gorm"
)

type classificationRepository struct {
	db *gorm.DB
}

func NewClassificationRepository(db *gorm.DB) *classificationRepository {
	return &classificationRepository{db: db}
}

func (r *classificationRepository) Create(ctx context.Context, classification *domain.Classification) error {
	return r.db.WithContext(ctx).Create(classification).Error
}

func (r *classificationRepository) ListByUserID(ctx context.Context, userID uint, limit int) ([]*domain.Classification, error) {
	var rows []*domain.Classification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
