package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ecosort/recycle-assistant/internal/config"
	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/metrics"
	"github.com/ecosort/recycle-assistant/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

var (
	ErrInvalidToken       = fmt.Errorf("%w: could not validate credentials", domain.ErrUnauthenticated)
	ErrInvalidRefresh     = fmt.Errorf("%w: invalid or expired refresh token", domain.ErrUnauthenticated)
	ErrRefreshTokenReused = fmt.Errorf("%w: refresh token already used", domain.ErrUnauthenticated)
)

const (
	refreshTokenBytes = 32
	jtiBytes          = 16
)

// TokenPair is what a successful login or refresh hands to the client.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
	ExpiresIn    int64 // seconds
}

// AccessClaims are the claims carried by an access token. Subject holds the
// user id in decimal form.
type AccessClaims struct {
	jwt.RegisteredClaims
}

func (c *AccessClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// TokenLedger owns refresh tokens, access tokens and the access token
// denylist.
type TokenLedger struct {
	repos      *repository.Repositories
	method     jwt.SigningMethod
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenLedger(repos *repository.Repositories, cfg *config.Config) *TokenLedger {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return &TokenLedger{
		repos:      repos,
		method:     method,
		key:        []byte(cfg.SecretKey),
		accessTTL:  cfg.AccessTokenTTL(),
		refreshTTL: cfg.RefreshTokenTTL(),
	}
}

// HashRefreshToken is the at-rest form of a refresh token.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// IssueRefresh creates a refresh token for userID. The raw value is only
// ever returned here; the ledger keeps its hash.
func (l *TokenLedger) IssueRefresh(ctx context.Context, userID uint) (string, error) {
	return l.issueRefresh(ctx, l.repos.RefreshToken, userID)
}

func (l *TokenLedger) issueRefresh(ctx context.Context, tokens repository.RefreshTokenRepository, userID uint) (string, error) {
	b, err := randomBytes(refreshTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(b)

	record := &domain.RefreshToken{
		UserID:    userID,
		TokenHash: HashRefreshToken(raw),
		ExpiresAt: time.Now().Add(l.refreshTTL),
	}
	if err := tokens.Create(ctx, record); err != nil {
		return "", fmt.Errorf("%w: store refresh token: %v", domain.ErrStorage, err)
	}

	metrics.RecordTokenEvent("issued")
	return raw, nil
}

// ValidateRefresh returns the live record for raw, or nil when the token is
// unknown, revoked or expired. An error means storage failed.
func (l *TokenLedger) ValidateRefresh(ctx context.Context, raw string) (*domain.RefreshToken, error) {
	return l.validateRefresh(ctx, l.repos.RefreshToken, raw)
}

func (l *TokenLedger) validateRefresh(ctx context.Context, tokens repository.RefreshTokenRepository, raw string) (*domain.RefreshToken, error) {
	if raw == "" {
		return nil, nil
	}
	record, err := tokens.GetActiveByHash(ctx, HashRefreshToken(raw))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: lookup refresh token: %v", domain.ErrStorage, err)
	}
	if record.Expired(time.Now()) {
		return nil, nil
	}
	return record, nil
}

// Revoke marks token revoked. Revoking an already revoked token is a no-op.
func (l *TokenLedger) Revoke(ctx context.Context, token *domain.RefreshToken) error {
	_, err := l.revoke(ctx, l.repos.RefreshToken, token)
	return err
}

func (l *TokenLedger) revoke(ctx context.Context, tokens repository.RefreshTokenRepository, token *domain.RefreshToken) (bool, error) {
	changed, err := tokens.Revoke(ctx, token.ID)
	if err != nil {
		return false, fmt.Errorf("%w: revoke refresh token: %v", domain.ErrStorage, err)
	}
	if changed {
		token.Revoked = true
		metrics.RecordTokenEvent("revoked")
	}
	return changed, nil
}

// Rotate spends old and issues a fresh pair for the same user. Of several
// concurrent rotations of one token exactly one succeeds; the others get
// ErrRefreshTokenReused.
func (l *TokenLedger) Rotate(ctx context.Context, old *domain.RefreshToken) (*TokenPair, error) {
	var raw string
	err := l.repos.Tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		changed, err := l.revoke(ctx, tx.RefreshToken, old)
		if err != nil {
			return err
		}
		if !changed {
			return ErrRefreshTokenReused
		}
		raw, err = l.issueRefresh(ctx, tx.RefreshToken, old.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrRefreshTokenReused) {
			metrics.RecordTokenEvent("reuse_rejected")
			logging.Ctx(ctx).Warn().Uint("user_id", old.UserID).Uint("token_id", old.ID).Msg("refresh token reuse rejected")
		}
		return nil, err
	}

	pair, err := l.newPair(old.UserID, raw)
	if err != nil {
		return nil, err
	}
	metrics.RecordTokenEvent("rotated")
	return pair, nil
}

// IssuePair creates a refresh token and an access token for userID.
func (l *TokenLedger) IssuePair(ctx context.Context, userID uint) (*TokenPair, error) {
	raw, err := l.IssueRefresh(ctx, userID)
	if err != nil {
		return nil, err
	}
	return l.newPair(userID, raw)
}

func (l *TokenLedger) newPair(userID uint, rawRefresh string) (*TokenPair, error) {
	access, exp, err := l.IssueAccessToken(userID, l.accessTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		TokenType:    "bearer",
		ExpiresAt:    exp,
		ExpiresIn:    int64(l.accessTTL / time.Second),
	}, nil
}

// IssueAccessToken signs a short-lived access token with a fresh jti.
func (l *TokenLedger) IssueAccessToken(userID uint, ttl time.Duration) (string, time.Time, error) {
	b, err := randomBytes(jtiBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate jti: %w", err)
	}

	now := time.Now()
	exp := now.Add(ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        hex.EncodeToString(b),
		},
	}

	signed, err := jwt.NewWithClaims(l.method, claims).SignedString(l.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// ParseAccessToken verifies algorithm, signature and expiry.
func (l *TokenLedger) ParseAccessToken(signed string) (*AccessClaims, error) {
	return l.parse(signed)
}

func (l *TokenLedger) parse(signed string, opts ...jwt.ParserOption) (*AccessClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{l.method.Alg()}))

	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		return l.key, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// BlacklistAccessToken records the token's jti until its expiry. Only the
// signature is checked so already expired tokens can still be listed.
func (l *TokenLedger) BlacklistAccessToken(ctx context.Context, signed string) error {
	claims, err := l.parse(signed, jwt.WithoutClaimsValidation())
	if err != nil {
		return err
	}
	return l.blacklist(ctx, l.repos.Denylist, claims)
}

func (l *TokenLedger) blacklist(ctx context.Context, denylist repository.DenylistRepository, claims *AccessClaims) error {
	entry := &domain.BlockedToken{
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := denylist.Add(ctx, entry); err != nil {
		return fmt.Errorf("%w: blacklist token: %v", domain.ErrStorage, err)
	}
	metrics.RecordTokenEvent("blacklisted")
	return nil
}

func (l *TokenLedger) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	found, err := l.repos.Denylist.Contains(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("%w: denylist lookup: %v", domain.ErrStorage, err)
	}
	return found, nil
}

// PurgeExpiredDenylist drops denylist rows whose token expired before
// cutoff. Those tokens already fail the expiry check.
func (l *TokenLedger) PurgeExpiredDenylist(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := l.repos.Denylist.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: purge denylist: %v", domain.ErrStorage, err)
	}
	if n > 0 {
		metrics.TokenEvents.WithLabelValues("purged").Add(float64(n))
	}
	return n, nil
}
