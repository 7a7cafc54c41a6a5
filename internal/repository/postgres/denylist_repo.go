package postgres

import (
	"context"
	"time"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type denylistRepository struct {
	db *gorm.DB
}

func NewDenylistRepository(db *gorm.DB) *denylistRepository {
	return &denylistRepository{db: db}
}

func (r *denylistRepository) Add(ctx context.Context, entry *domain.BlockedToken) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "jti"}},
		DoNothing: true,
	}).Create(entry).Error
}

func (r *denylistRepository) Contains(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.BlockedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error
	return count > 0, err
}

func (r *denylistRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&domain.BlockedToken{})
	return result.RowsAffected, result.Error
}
