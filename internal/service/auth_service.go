package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/metrics"
	"github.com/ecosort/recycle-assistant/internal/repository"
	"github.com/ecosort/recycle-assistant/internal/security"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: incorrect username or password", domain.ErrUnauthenticated)
	ErrNameTaken          = fmt.Errorf("%w: name already registered", domain.ErrConflict)
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", domain.ErrConflict)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", domain.ErrNotFound)
)

type AuthService struct {
	repos  *repository.Repositories
	hasher security.PasswordHasher
	tokens *TokenLedger

	// dummyHash is compared against for unknown emails so both failure
	// paths cost one bcrypt comparison.
	dummyHash string
}

func NewAuthService(repos *repository.Repositories, hasher security.PasswordHasher, tokens *TokenLedger) *AuthService {
	dummy, err := hasher.Hash("timing-equaliser-password")
	if err != nil {
		logging.Warn().Err(err).Msg("could not prepare dummy password hash")
	}
	return &AuthService{
		repos:     repos,
		hasher:    hasher,
		tokens:    tokens,
		dummyHash: dummy,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)

	if err := ensureFreeIdentity(ctx, s.repos.User, 0, name, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: name or email already registered", domain.ErrConflict)
		}
		return nil, fmt.Errorf("%w: create user: %v", domain.ErrStorage, err)
	}

	logging.Ctx(ctx).Info().Uint("user_id", user.ID).Msg("user registered")
	return user, nil
}

// ensureFreeIdentity checks that name and email are not used by anyone
// other than selfID. Empty values are skipped.
func ensureFreeIdentity(ctx context.Context, users repository.UserRepository, selfID uint, name, email string) error {
	if name != "" {
		existing, err := users.GetByName(ctx, name)
		switch {
		case err == nil && existing.ID != selfID:
			return ErrNameTaken
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("%w: lookup user: %v", domain.ErrStorage, err)
		}
	}
	if email != "" {
		existing, err := users.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != selfID:
			return ErrEmailTaken
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("%w: lookup user: %v", domain.ErrStorage, err)
		}
	}
	return nil
}

// Authenticate checks an email and password pair. Unknown email and wrong
// password both yield ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repos.User.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: lookup user: %v", domain.ErrStorage, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.RecordLogin("invalid_credentials")
		}
		return nil, err
	}
	if user.Disabled {
		metrics.RecordLogin("inactive")
		return nil, domain.ErrInactiveAccount
	}

	pair, err := s.tokens.IssuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	metrics.RecordLogin("success")
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// spent whether or not the caller uses the new one.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	record, err := s.tokens.ValidateRefresh(ctx, rawRefresh)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrInvalidRefresh
	}

	user, err := s.repos.User.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, fmt.Errorf("%w: lookup user: %v", domain.ErrStorage, err)
	}
	if user.Disabled {
		return nil, domain.ErrInactiveAccount
	}

	return s.tokens.Rotate(ctx, record)
}

// Logout denylists the access token and revokes the refresh token in one
// transaction. A refresh token that is unknown, already spent or owned by
// someone else is ignored.
func (s *AuthService) Logout(ctx context.Context, accessToken, rawRefresh string) error {
	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return err
	}
	userID, err := claims.UserID()
	if err != nil {
		return err
	}

	return s.repos.Tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		if err := s.tokens.blacklist(ctx, tx.Denylist, claims); err != nil {
			return err
		}

		record, err := s.tokens.validateRefresh(ctx, tx.RefreshToken, rawRefresh)
		if err != nil {
			return err
		}
		if record == nil || record.UserID != userID {
			return nil
		}
		_, err = s.tokens.revoke(ctx, tx.RefreshToken, record)
		return err
	})
}

// ResolveCurrentUser maps a bearer token to an active user.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	blocked, err := s.tokens.IsBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}

	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%w: lookup user: %v", domain.ErrStorage, err)
	}
	if user.Disabled {
		return nil, domain.ErrInactiveAccount
	}
	return user, nil
}
