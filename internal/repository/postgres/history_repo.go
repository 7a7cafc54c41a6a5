package postgres

import (
	"context"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"gorm.io/gorm"
)

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *historyRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, history *domain.History) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *historyRepository) Stats(ctx context.Context) (domain.HistoryStats, error) {
	var stats domain.HistoryStats
	err := r.db.WithContext(ctx).
		Model(&domain.History{}).
		Select("COUNT(DISTINCT user_id) AS distinct_users, COUNT(*) AS interactions").
		Scan(&stats).Error
	return stats, err
}

func (r *historyRepository) CountByUserID(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.History{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *historyRepository) ListInteractions(ctx context.Context) ([]*domain.History, error) {
	var rows []*domain.History
	err := r.db.WithContext(ctx).
		Select("user_id", "item_id").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *historyRepository) ListByUserID(ctx context.Context, userID uint, limit, offset int) ([]*domain.History, error) {
	var rows []*domain.History
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("viewed_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
