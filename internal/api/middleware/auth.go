package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/service"
	"github.com/goccy/go-json"
)

type contextKey string

const (
	UserKey  contextKey = "user"
	TokenKey contextKey = "accessToken"
)

// Auth resolves the bearer token to an active user and stores both in the
// request context. Requests without a usable token get a 401.
func Auth(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logging.Ctx(r.Context()).Debug().Msg("missing or malformed authorization header")
				unauthorized(w, "not authenticated")
				return
			}

			user, err := authService.ResolveCurrentUser(r.Context(), token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("token rejected")
				if errors.Is(err, domain.ErrInactiveAccount) {
					unauthorized(w, "inactive account")
					return
				}
				if !errors.Is(err, domain.ErrUnauthenticated) {
					logging.Ctx(r.Context()).Error().Err(err).Msg("failed to resolve current user")
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				unauthorized(w, "could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			ctx = context.WithValue(ctx, TokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": message})
}

func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok
}

func GetUserID(ctx context.Context) (uint, bool) {
	user, ok := GetUser(ctx)
	if !ok {
		return 0, false
	}
	return user.ID, true
}

// GetToken returns the raw access token the request was authenticated with.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}
