package postgres

import (
	"context"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"gorm.io/gorm"
)

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *itemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *itemRepository) GetByID(ctx context.Context, id uint) (*domain.Item, error) {
	var item domain.Item
	err := r.db.WithContext(ctx).
		Preload("Category").
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) GetByName(ctx context.Context, name string) (*domain.Item, error) {
	var item domain.Item
	err := r.db.WithContext(ctx).First(&item, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetByIDs returns the items that exist among ids, ordered by id.
func (r *itemRepository) GetByIDs(ctx context.Context, ids []uint) ([]*domain.Item, error) {
	var items []*domain.Item
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// List returns one page of items and the total number matching filter.
func (r *itemRepository) List(ctx context.Context, filter domain.ItemFilter, limit, offset int) ([]*domain.Item, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Item{})
	if filter.Name != "" {
		q = q.Where("name ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.CategoryID != 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []*domain.Item
	err := q.Preload("Category").
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *itemRepository) Update(ctx context.Context, item *domain.Item) error {
	return r.db.WithContext(ctx).Omit("Category").Save(item).Error
}

func (r *itemRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Item{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
