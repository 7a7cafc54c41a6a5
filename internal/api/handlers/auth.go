package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/ecosort/recycle-assistant/internal/api/middleware"
	"github.com/ecosort/recycle-assistant/internal/service"
	"github.com/ecosort/recycle-assistant/internal/validation"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest accepts either a JSON email or the OAuth2 password-grant
// form field "username".
type LoginRequest struct {
	Email    string `json:"email" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is the OAuth2-style token body. It is not wrapped in the
// response envelope.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func newTokenResponse(pair *service.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusCreated, "user registered", user)
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	req, err := parseLoginRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pair, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newTokenResponse(pair))
}

func parseLoginRequest(r *http.Request) (*LoginRequest, error) {
	var req LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case mediaType == "application/x-www-form-urlencoded", strings.HasPrefix(mediaType, "multipart/"):
		req.Email = r.FormValue("username")
		req.Password = r.FormValue("password")
		if err := validation.Struct(&req); err != nil {
			return nil, err
		}
	default:
		if err := decodeJSON(r, &req); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, newTokenResponse(pair))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.GetToken(r.Context())
	if !ok {
		respondMessage(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	// the body is optional
	var req LogoutRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, r, err)
		return
	}

	if err := h.authService.Logout(r.Context(), token, req.RefreshToken); err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, r, http.StatusOK, "logout successful", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respondMessage(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	respondOK(w, r, http.StatusOK, "", user)
}
