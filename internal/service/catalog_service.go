package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/repository"
	"github.com/ecosort/recycle-assistant/internal/storage"
	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

var (
	ErrCategoryNotFound  = fmt.Errorf("%w: category not found", domain.ErrNotFound)
	ErrCategoryExists    = fmt.Errorf("%w: category already exists", domain.ErrConflict)
	ErrItemNotFound      = fmt.Errorf("%w: item not found", domain.ErrNotFound)
	ErrItemExists        = fmt.Errorf("%w: item already exists", domain.ErrConflict)
	ErrUnknownCategory   = fmt.Errorf("%w: category does not exist", domain.ErrInvalidInput)
	ErrUnsupportedImage  = fmt.Errorf("%w: only png, jpg and jpeg images are allowed", domain.ErrInvalidInput)
	ErrInvalidPagination = fmt.Errorf("%w: page must be >= 1 and limit between 1 and %d", domain.ErrInvalidInput, MaxPageLimit)
	ErrEmptyCatalogName  = fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
)

// ImageUpload is an uploaded file on its way to the image store.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

type CatalogService struct {
	repos  *repository.Repositories
	images storage.ImageStore
}

func NewCatalogService(repos *repository.Repositories, images storage.ImageStore) *CatalogService {
	return &CatalogService{repos: repos, images: images}
}

// Categories

type CreateCategoryInput struct {
	Name      string
	ImageLink string
}

func (s *CatalogService) GetCategory(ctx context.Context, id uint) (*domain.Category, error) {
	category, err := s.repos.Category.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("%w: get category: %v", domain.ErrStorage, err)
	}
	return category, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, nameFilter string) ([]*domain.Category, error) {
	categories, err := s.repos.Category.List(ctx, strings.TrimSpace(nameFilter))
	if err != nil {
		return nil, fmt.Errorf("%w: list categories: %v", domain.ErrStorage, err)
	}
	return categories, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, input CreateCategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrEmptyCatalogName
	}
	if err := s.ensureCategoryNameFree(ctx, 0, name); err != nil {
		return nil, err
	}

	now := time.Now()
	category := &domain.Category{
		Name:      name,
		ImageLink: input.ImageLink,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repos.Category.Create(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("%w: create category: %v", domain.ErrStorage, err)
	}
	return category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, patch domain.CategoryPatch) (*domain.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrEmptyCatalogName
		}
		if err := s.ensureCategoryNameFree(ctx, id, name); err != nil {
			return nil, err
		}
		category.Name = name
	}
	if patch.ImageLink != nil {
		category.ImageLink = *patch.ImageLink
	}
	category.UpdatedAt = time.Now()

	if err := s.repos.Category.Update(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("%w: update category: %v", domain.ErrStorage, err)
	}
	return category, nil
}

func (s *CatalogService) ensureCategoryNameFree(ctx context.Context, selfID uint, name string) error {
	existing, err := s.repos.Category.GetByName(ctx, name)
	switch {
	case err == nil && existing.ID != selfID:
		return ErrCategoryExists
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: lookup category: %v", domain.ErrStorage, err)
	}
	return nil
}

// Items

type CreateItemInput struct {
	Name         string
	Description  string
	Recycle      string
	IsReusable   bool
	IsRecyclable bool
	IsHazardous  bool
	CategoryName string
	Image        *ImageUpload
}

// ItemPage is one page of an item listing.
type ItemPage struct {
	Items      []*domain.Item
	Page       int
	Limit      int
	TotalItems int64
	TotalPages int
}

func (s *CatalogService) GetItem(ctx context.Context, id uint) (*domain.Item, error) {
	item, err := s.repos.Item.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("%w: get item: %v", domain.ErrStorage, err)
	}
	return item, nil
}

func (s *CatalogService) ListItems(ctx context.Context, filter domain.ItemFilter, page, limit int) (*ItemPage, error) {
	if page < 1 || limit < 1 || limit > MaxPageLimit {
		return nil, ErrInvalidPagination
	}
	filter.Name = strings.TrimSpace(filter.Name)

	items, total, err := s.repos.Item.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list items: %v", domain.ErrStorage, err)
	}

	return &ItemPage{
		Items:      items,
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func (s *CatalogService) CreateItem(ctx context.Context, input CreateItemInput) (*domain.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrEmptyCatalogName
	}
	if input.Image != nil && !storage.IsAllowedImageType(input.Image.ContentType) {
		return nil, ErrUnsupportedImage
	}
	if err := s.ensureItemNameFree(ctx, 0, name); err != nil {
		return nil, err
	}
	category, err := s.categoryByName(ctx, input.CategoryName)
	if err != nil {
		return nil, err
	}

	var link string
	if input.Image != nil {
		link, err = s.saveImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	item := &domain.Item{
		Name:         name,
		Description:  input.Description,
		ImageLink:    link,
		Recycle:      input.Recycle,
		IsReusable:   input.IsReusable,
		IsRecyclable: input.IsRecyclable,
		IsHazardous:  input.IsHazardous,
		CategoryID:   category.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repos.Item.Create(ctx, item); err != nil {
		s.discardImage(ctx, link)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrItemExists
		}
		return nil, fmt.Errorf("%w: create item: %v", domain.ErrStorage, err)
	}

	item.Category = category
	return item, nil
}

// UpdateItem applies patch and, when image is set, replaces the stored
// image. The old image is removed only after the row is updated.
func (s *CatalogService) UpdateItem(ctx context.Context, id uint, patch domain.ItemPatch, image *ImageUpload) (*domain.Item, error) {
	if image != nil && !storage.IsAllowedImageType(image.ContentType) {
		return nil, ErrUnsupportedImage
	}

	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	oldLink := item.ImageLink

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrEmptyCatalogName
		}
		if err := s.ensureItemNameFree(ctx, id, name); err != nil {
			return nil, err
		}
		item.Name = name
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Recycle != nil {
		item.Recycle = *patch.Recycle
	}
	if patch.IsReusable != nil {
		item.IsReusable = *patch.IsReusable
	}
	if patch.IsRecyclable != nil {
		item.IsRecyclable = *patch.IsRecyclable
	}
	if patch.IsHazardous != nil {
		item.IsHazardous = *patch.IsHazardous
	}
	if patch.CategoryName != nil {
		category, err := s.categoryByName(ctx, *patch.CategoryName)
		if err != nil {
			return nil, err
		}
		item.CategoryID = category.ID
		item.Category = category
	}

	var newLink string
	if image != nil {
		newLink, err = s.saveImage(ctx, image)
		if err != nil {
			return nil, err
		}
		item.ImageLink = newLink
	}
	item.UpdatedAt = time.Now()

	if err := s.repos.Item.Update(ctx, item); err != nil {
		s.discardImage(ctx, newLink)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrItemExists
		}
		return nil, fmt.Errorf("%w: update item: %v", domain.ErrStorage, err)
	}

	if newLink != "" && oldLink != "" && oldLink != newLink {
		s.discardImage(ctx, oldLink)
	}
	return item, nil
}

func (s *CatalogService) DeleteItem(ctx context.Context, id uint) error {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repos.Item.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrItemNotFound
		}
		return fmt.Errorf("%w: delete item: %v", domain.ErrStorage, err)
	}

	s.discardImage(ctx, item.ImageLink)
	return nil
}

func (s *CatalogService) ensureItemNameFree(ctx context.Context, selfID uint, name string) error {
	existing, err := s.repos.Item.GetByName(ctx, name)
	switch {
	case err == nil && existing.ID != selfID:
		return ErrItemExists
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: lookup item: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *CatalogService) categoryByName(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrUnknownCategory
	}
	category, err := s.repos.Category.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownCategory
		}
		return nil, fmt.Errorf("%w: lookup category: %v", domain.ErrStorage, err)
	}
	return category, nil
}

func (s *CatalogService) saveImage(ctx context.Context, image *ImageUpload) (string, error) {
	link, err := s.images.Save(ctx, image.Filename, image.ContentType, image.Data)
	if err != nil {
		return "", fmt.Errorf("%w: save image: %v", domain.ErrStorage, err)
	}
	return link, nil
}

// discardImage removes a stored image on a best-effort basis.
func (s *CatalogService) discardImage(ctx context.Context, link string) {
	if link == "" {
		return
	}
	if err := s.images.Delete(ctx, link); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("link", link).Msg("failed to delete image")
	}
}
