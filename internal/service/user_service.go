package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/repository"
	"github.com/ecosort/recycle-assistant/internal/security"
	"gorm.io/gorm"
)

var ErrNotOwner = fmt.Errorf("%w: you can only act on your own account", domain.ErrUnauthorized)

type UserService struct {
	repos  *repository.Repositories
	hasher security.PasswordHasher
}

func NewUserService(repos *repository.Repositories, hasher security.PasswordHasher) *UserService {
	return &UserService{repos: repos, hasher: hasher}
}

func (s *UserService) GetUser(ctx context.Context, actorID, userID uint) (*domain.User, error) {
	if actorID != userID {
		return nil, ErrNotOwner
	}
	return getUser(ctx, s.repos.User, userID)
}

func getUser(ctx context.Context, users repository.UserRepository, id uint) (*domain.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: lookup user: %v", domain.ErrStorage, err)
	}
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, actorID, userID uint, patch domain.UserPatch) (*domain.User, error) {
	if actorID != userID {
		return nil, ErrNotOwner
	}

	user, err := getUser(ctx, s.repos.User, userID)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return user, nil
	}

	var name, email string
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
		}
	}
	if patch.Email != nil {
		email = normalizeEmail(*patch.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email must not be empty", domain.ErrInvalidInput)
		}
	}
	if err := ensureFreeIdentity(ctx, s.repos.User, user.ID, name, email); err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	user.UpdatedAt = time.Now()

	if err := s.repos.User.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: name or email already registered", domain.ErrConflict)
		}
		return nil, fmt.Errorf("%w: update user: %v", domain.ErrStorage, err)
	}
	return user, nil
}

// DisableUser soft-deletes an account and revokes all of its refresh
// tokens. Outstanding access tokens stop resolving because the user is
// disabled.
func (s *UserService) DisableUser(ctx context.Context, actorID, userID uint) error {
	if actorID != userID {
		return ErrNotOwner
	}

	var revoked int64
	err := s.repos.Tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		user, err := getUser(ctx, tx.User, userID)
		if err != nil {
			return err
		}
		user.Disabled = true
		user.UpdatedAt = time.Now()
		if err := tx.User.Update(ctx, user); err != nil {
			return fmt.Errorf("%w: disable user: %v", domain.ErrStorage, err)
		}

		revoked, err = tx.RefreshToken.RevokeAllForUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("%w: revoke refresh tokens: %v", domain.ErrStorage, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.Ctx(ctx).Info().Uint("user_id", userID).Int64("revoked_tokens", revoked).Msg("user disabled")
	return nil
}
