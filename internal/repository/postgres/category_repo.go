package postgres

import (
	"context"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"gorm.io/gorm"
)

type categoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *categoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*domain.Category, error) {
	var category domain.Category
	err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	var category domain.Category
	err := r.db.WithContext(ctx).First(&category, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// List returns categories ordered by id. A non-empty nameFilter matches
// case-insensitively anywhere in the name.
func (r *categoryRepository) List(ctx context.Context, nameFilter string) ([]*domain.Category, error) {
	var categories []*domain.Category
	q := r.db.WithContext(ctx).Order("id ASC")
	if nameFilter != "" {
		q = q.Where("name ILIKE ?", "%"+nameFilter+"%")
	}
	if err := q.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}
