package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecosort/recycle-assistant/internal/classifier"
	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/repository"
	"github.com/ecosort/recycle-assistant/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrClassifierDisabled = fmt.Errorf("%w: image classification is not configured", domain.ErrUpstream)

// ClassificationOutcome is a classifier result plus the catalog category it
// maps to, when there is one.
type ClassificationOutcome struct {
	*classifier.Result
	CategoryID *uint `json:"category_id"`
	RecordID   uint  `json:"classification_id"`
}

type ClassificationService struct {
	repos      *repository.Repositories
	classifier classifier.Classifier
}

func NewClassificationService(repos *repository.Repositories, c classifier.Classifier) *ClassificationService {
	return &ClassificationService{repos: repos, classifier: c}
}

func (s *ClassificationService) Classify(ctx context.Context, userID uint, image []byte, mimeType string) (*ClassificationOutcome, error) {
	if !storage.IsAllowedImageType(mimeType) {
		return nil, ErrUnsupportedImage
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidInput)
	}
	if s.classifier == nil {
		return nil, ErrClassifierDisabled
	}

	result, err := s.classifier.Classify(ctx, image, mimeType)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Uint("user_id", userID).Msg("classification failed")
		return nil, err
	}

	record := &domain.Classification{
		UserID:     userID,
		ModelName:  s.classifier.ModelName(),
		Prompt:     s.classifier.Prompt(),
		Output:     datatypes.JSON(result.Raw),
		Identified: result.Identified,
		CreatedAt:  time.Now(),
	}
	if len(record.Output) == 0 {
		record.Output = datatypes.JSON("{}")
	}
	if err := s.repos.Classification.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: record classification: %v", domain.ErrStorage, err)
	}

	outcome := &ClassificationOutcome{Result: result, RecordID: record.ID}
	if result.Identified && result.CategoryName != "" {
		category, err := s.repos.Category.GetByName(ctx, result.CategoryName)
		switch {
		case err == nil:
			outcome.CategoryID = &category.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			logging.Ctx(ctx).Warn().Err(err).Msg("category lookup for classification failed")
		}
	}
	return outcome, nil
}

// History returns the caller's most recent classifications.
func (s *ClassificationService) History(ctx context.Context, userID uint, limit int) ([]*domain.Classification, error) {
	if limit < 1 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}
	rows, err := s.repos.Classification.ListByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list classifications: %v", domain.ErrStorage, err)
	}
	return rows, nil
}
