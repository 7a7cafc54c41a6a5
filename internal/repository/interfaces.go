package repository

import (
	"context"
	"time"

	"github.com/ecosort/recycle-assistant/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByName(ctx context.Context, name string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	// GetActiveByHash returns the non-revoked token with the given hash.
	// Expiry is checked by the caller.
	GetActiveByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// Revoke flips revoked false -> true and reports whether this call did it.
	Revoke(ctx context.Context, id uint) (bool, error)
	RevokeAllForUser(ctx context.Context, userID uint) (int64, error)
}

type DenylistRepository interface {
	// Add records a jti; adding an existing jti is a no-op.
	Add(ctx context.Context, entry *domain.BlockedToken) error
	Contains(ctx context.Context, jti string) (bool, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type HistoryRepository interface {
	Create(ctx context.Context, history *domain.History) error
	Stats(ctx context.Context) (domain.HistoryStats, error)
	CountByUserID(ctx context.Context, userID uint) (int64, error)
	// ListInteractions returns every (user, item) pair of the log.
	ListInteractions(ctx context.Context) ([]*domain.History, error)
	ListByUserID(ctx context.Context, userID uint, limit, offset int) ([]*domain.History, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id uint) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	List(ctx context.Context, nameFilter string) ([]*domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
}

type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id uint) (*domain.Item, error)
	GetByName(ctx context.Context, name string) (*domain.Item, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*domain.Item, error)
	List(ctx context.Context, filter domain.ItemFilter, limit, offset int) ([]*domain.Item, int64, error)
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id uint) error
}

type ClassificationRepository interface {
	Create(ctx context.Context, classification *domain.Classification) error
	ListByUserID(ctx context.Context, userID uint, limit int) ([]*domain.Classification, error)
}

// Transactor runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
}

type Repositories struct {
	User           UserRepository
	RefreshToken   RefreshTokenRepository
	Denylist       DenylistRepository
	History        HistoryRepository
	Category       CategoryRepository
	Item           ItemRepository
	Classification ClassificationRepository
	Tx             Transactor
}
