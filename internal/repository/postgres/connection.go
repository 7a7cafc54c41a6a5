package postgres

import (
	"context"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.RefreshToken{},
		&domain.BlockedToken{},
		&domain.Category{},
		&domain.Item{},
		&domain.History{},
		&domain.Classification{},
	); err != nil {
		return err
	}

	// Older schemas tied histories to users and items with cascading keys.
	migrator := db.Migrator()
	for _, name := range []string{"fk_histories_item", "fk_histories_user"} {
		if migrator.HasConstraint(&domain.History{}, name) {
			if err := migrator.DropConstraint(&domain.History{}, name); err != nil {
				return err
			}
		}
	}
	return nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:           NewUserRepository(db),
		RefreshToken:   NewRefreshTokenRepository(db),
		Denylist:       NewDenylistRepository(db),
		History:        NewHistoryRepository(db),
		Category:       NewCategoryRepository(db),
		Item:           NewItemRepository(db),
		Classification: NewClassificationRepository(db),
		Tx:             &transactor{db: db},
	}
}

type transactor struct {
	db *gorm.DB
}

func (t *transactor) WithinTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
