package service

import (
	"github.com/ecosort/recycle-assistant/internal/cache"
	"github.com/ecosort/recycle-assistant/internal/classifier"
	"github.com/ecosort/recycle-assistant/internal/config"
	"github.com/ecosort/recycle-assistant/internal/repository"
	"github.com/ecosort/recycle-assistant/internal/security"
	"github.com/ecosort/recycle-assistant/internal/storage"
)

// Dependencies are the outside collaborators of the services. Cache and
// Classifier may be nil.
type Dependencies struct {
	Images     storage.ImageStore
	Cache      cache.Store
	Classifier classifier.Classifier
}

type Services struct {
	Tokens          *TokenLedger
	Auth            *AuthService
	Users           *UserService
	Catalog         *CatalogService
	Recommendations *RecommendationService
	Classifications *ClassificationService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, deps Dependencies) *Services {
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	tokens := NewTokenLedger(repos, cfg)

	return &Services{
		Tokens:          tokens,
		Auth:            NewAuthService(repos, hasher, tokens),
		Users:           NewUserService(repos, hasher),
		Catalog:         NewCatalogService(repos, deps.Images),
		Recommendations: NewRecommendationService(repos, deps.Cache, RecommendationSettingsFromConfig(cfg)),
		Classifications: NewClassificationService(repos, deps.Classifier),
	}
}
