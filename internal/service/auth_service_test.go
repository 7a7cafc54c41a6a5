package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/service"
	"github.com/ecosort/recycle-assistant/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	f := newFixture(t)
	authService := f.services.Auth
	ctx := context.Background()

	tests := []struct {
		name    string
		input   service.RegisterInput
		setup   func()
		wantErr error
	}{
		{
			name: "successful registration",
			input: service.RegisterInput{
				Name:     "newuser",
				Email:    "New.User@Example.com",
				Password: "password123",
			},
		},
		{
			name: "duplicate name",
			input: service.RegisterInput{
				Name:     "existinguser",
				Email:    "fresh@example.com",
				Password: "password123",
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithName("existinguser").
					Build(t, f.db.DB)
			},
			wantErr: service.ErrNameTaken,
		},
		{
			name: "duplicate email ignores case",
			input: service.RegisterInput{
				Name:     "someoneelse",
				Email:    "TAKEN@example.com",
				Password: "password123",
			},
			setup: func() {
				testutil.NewUserBuilder().
					WithEmail("taken@example.com").
					Build(t, f.db.DB)
			},
			wantErr: service.ErrEmailTaken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.db.Truncate(t)

			if tt.setup != nil {
				tt.setup()
			}

			user, err := authService.Register(ctx, tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrConflict)
				return
			}

			require.NoError(t, err)
			assert.NotZero(t, user.ID)
			assert.Equal(t, "new.user@example.com", user.Email)
			assert.NotEqual(t, tt.input.Password, user.PasswordHash)
			assert.False(t, user.Disabled)
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newFixture(t)
	authService := f.services.Auth
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().
		WithEmail("auth@example.com").
		Build(t, f.db.DB)

	got, err := authService.Authenticate(ctx, "AUTH@example.com", password)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, wrongPassword := authService.Authenticate(ctx, "auth@example.com", "wrong")
	_, unknownEmail := authService.Authenticate(ctx, "nobody@example.com", password)

	assert.ErrorIs(t, wrongPassword, service.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, service.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error(), "failures must be indistinguishable")
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	authService := f.services.Auth
	ctx := context.Background()

	active, password := testutil.NewUserBuilder().Build(t, f.db.DB)
	disabled, disabledPassword := testutil.NewUserBuilder().Disabled().Build(t, f.db.DB)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid credentials", active.Email, password, nil},
		{"wrong password", active.Email, "wrong", service.ErrInvalidCredentials},
		{"disabled account", disabled.Email, disabledPassword, domain.ErrInactiveAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := authService.Login(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrUnauthenticated)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, pair.AccessToken)
			assert.NotEmpty(t, pair.RefreshToken)
			assert.Equal(t, "bearer", pair.TokenType)

			user, err := authService.ResolveCurrentUser(ctx, pair.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, active.ID, user.ID)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	f := newFixture(t)
	authService := f.services.Auth
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().Build(t, f.db.DB)
	pair, err := authService.Login(ctx, user.Email, password)
	require.NoError(t, err)

	next, err := authService.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = authService.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidRefresh, "a spent token cannot be replayed")

	_, err = authService.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, service.ErrInvalidRefresh)

	require.NoError(t, f.db.DB.Model(&domain.User{}).Where("id = ?", user.ID).Update("disabled", true).Error)
	_, err = authService.Refresh(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInactiveAccount)
}

func TestAuthService_Logout(t *testing.T) {
	f := newFixture(t)
	authService := f.services.Auth
	ctx := context.Background()

	user, password := testutil.NewUserBuilder().Build(t, f.db.DB)
	pair, err := authService.Login(ctx, user.Email, password)
	require.NoError(t, err)

	require.NoError(t, authService.Logout(ctx, pair.AccessToken, pair.RefreshToken))

	_, err = authService.ResolveCurrentUser(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	record, err := f.services.Tokens.ValidateRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, record)

	_, err = authService.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidRefresh)
}

func TestAuthService_Logout_ForeignRefreshToken(t *testing.T) {
	f := newFixture(t)
	authService := f.services.Auth
	ctx := context.Background()

	alice, alicePassword := testutil.NewUserBuilder().Build(t, f.db.DB)
	bob, bobPassword := testutil.NewUserBuilder().Build(t, f.db.DB)
	alicePair, err := authService.Login(ctx, alice.Email, alicePassword)
	require.NoError(t, err)
	bobPair, err := authService.Login(ctx, bob.Email, bobPassword)
	require.NoError(t, err)

	require.NoError(t, authService.Logout(ctx, alicePair.AccessToken, bobPair.RefreshToken))

	record, err := f.services.Tokens.ValidateRefresh(ctx, bobPair.RefreshToken)
	require.NoError(t, err)
	assert.NotNil(t, record, "someone else's refresh token is left alone")

	_, err = authService.ResolveCurrentUser(ctx, bobPair.AccessToken)
	assert.NoError(t, err)
}

func TestAuthService_ResolveCurrentUser(t *testing.T) {
	f := newFixture(t)
	authService := f.services.Auth
	ledger := f.services.Tokens
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, f.db.DB)
	disabled, _ := testutil.NewUserBuilder().Disabled().Build(t, f.db.DB)

	valid, _, err := ledger.IssueAccessToken(user.ID, time.Minute)
	require.NoError(t, err)
	forDisabled, _, err := ledger.IssueAccessToken(disabled.ID, time.Minute)
	require.NoError(t, err)
	forMissing, _, err := ledger.IssueAccessToken(user.ID+1000, time.Minute)
	require.NoError(t, err)
	expired, _, err := ledger.IssueAccessToken(user.ID, -time.Minute)
	require.NoError(t, err)
	blocked, _, err := ledger.IssueAccessToken(user.ID, time.Minute)
	require.NoError(t, err)
	require.NoError(t, ledger.BlacklistAccessToken(ctx, blocked))

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"valid", valid, nil},
		{"disabled user", forDisabled, domain.ErrInactiveAccount},
		{"unknown user", forMissing, domain.ErrUnauthenticated},
		{"expired", expired, domain.ErrUnauthenticated},
		{"blacklisted", blocked, domain.ErrUnauthenticated},
		{"garbage", "garbage", domain.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authService.ResolveCurrentUser(ctx, tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
		})
	}
}
