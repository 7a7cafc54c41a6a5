package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/ecosort/recycle-assistant/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	require.NoError(t, err)
	return resp
}

func do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestAuthHandler_Register(t *testing.T) {
	ts := testutil.NewTestServer(t)

	tests := []struct {
		name           string
		request        map[string]string
		setup          func()
		expectedStatus int
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name: "successful registration",
			request: map[string]string{
				"name":     "newuser",
				"email":    "NewUser@Example.com",
				"password": "password123",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response) {
				user := testutil.DecodeEnvelope[domain.User](t, resp)
				assert.Equal(t, "newuser", user.Name)
				assert.Equal(t, "newuser@example.com", user.Email)
				assert.NotZero(t, user.ID)
				assert.False(t, user.Disabled)
			},
		},
		{
			name:           "missing email",
			request:        map[string]string{"name": "nomail", "password": "password123"},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp *http.Response) {
				testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "email is required")
			},
		},
		{
			name:           "invalid email",
			request:        map[string]string{"name": "bad", "email": "not-an-email", "password": "password123"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "short password",
			request:        map[string]string{"name": "short", "email": "short@example.com", "password": "abc"},
			expectedStatus: http.StatusBadRequest,
			checkResponse: func(t *testing.T, resp *http.Response) {
				testutil.AssertErrorResponse(t, resp, http.StatusBadRequest, "password must be at least 8 characters")
			},
		},
		{
			name:    "duplicate name",
			request: map[string]string{"name": "existinguser", "email": "fresh@example.com", "password": "password123"},
			setup: func() {
				testutil.NewUserBuilder().WithName("existinguser").Build(t, ts.DB.DB)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:    "duplicate email in another case",
			request: map[string]string{"name": "fresh", "email": "Taken@Example.com", "password": "password123"},
			setup: func() {
				testutil.NewUserBuilder().WithEmail("taken@example.com").Build(t, ts.DB.DB)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "empty request body",
			request:        map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.DB.Truncate(t)

			if tt.setup != nil {
				tt.setup()
			}

			resp := postJSON(t, ts.APIURL("/auth/register"), tt.request)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestAuthHandler_Token(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, rawPassword := testutil.NewUserBuilder().
		WithEmail("login@example.com").
		WithPassword("correctpassword").
		Build(t, ts.DB.DB)
	disabled, disabledPassword := testutil.NewUserBuilder().Disabled().Build(t, ts.DB.DB)

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "successful login",
			request:        map[string]string{"email": user.Email, "password": rawPassword},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "email is case-insensitive",
			request:        map[string]string{"email": "LOGIN@example.com", "password": rawPassword},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid password",
			request:        map[string]string{"email": user.Email, "password": "wrongpassword"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "incorrect username or password",
		},
		{
			name:           "non-existent user",
			request:        map[string]string{"email": "nobody@example.com", "password": "anypassword"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "incorrect username or password",
		},
		{
			name:           "disabled account",
			request:        map[string]string{"email": disabled.Email, "password": disabledPassword},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "inactive account",
		},
		{
			name:           "missing password",
			request:        map[string]string{"email": user.Email},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.APIURL("/auth/token"), tt.request)
			defer resp.Body.Close()

			if tt.expectedError != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedError)
				assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
				return
			}
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus != http.StatusOK {
				return
			}

			var tokens testutil.TokenResponse
			testutil.AssertJSONResponse(t, resp, &tokens)
			assert.NotEmpty(t, tokens.AccessToken)
			assert.Len(t, tokens.RefreshToken, 43)
			assert.Equal(t, "bearer", tokens.TokenType)
			assert.Equal(t, int64(30*60), tokens.ExpiresIn)
		})
	}

	t.Run("oauth2 password form", func(t *testing.T) {
		form := url.Values{"username": {user.Email}, "password": {rawPassword}}
		resp, err := http.Post(ts.APIURL("/auth/token"), "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
		require.NoError(t, err)
		defer resp.Body.Close()

		var tokens testutil.TokenResponse
		require.Equal(t, http.StatusOK, resp.StatusCode)
		testutil.AssertJSONResponse(t, resp, &tokens)
		assert.NotEmpty(t, tokens.AccessToken)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	ts := testutil.NewTestServer(t)

	user, tokens := testutil.NewUserBuilder().
		WithName("meuser").
		BuildAndAuthenticate(t, ts)

	tests := []struct {
		name           string
		token          string
		expectedStatus int
		checkResponse  func(*testing.T, *http.Response)
	}{
		{
			name:           "successful fetch with valid token",
			token:          tokens.AccessToken,
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp *http.Response) {
				me := testutil.DecodeEnvelope[domain.User](t, resp)
				assert.Equal(t, user.ID, me.ID)
				assert.Equal(t, "meuser", me.Name)
			},
		},
		{
			name:           "missing authorization header",
			token:          "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid token",
			token:          "invalid.token.here",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "refresh token is not an access token",
			token:          tokens.RefreshToken,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.CreateAuthenticatedRequest(t, "GET", ts.APIURL("/auth/users/me"), nil, tt.token)
			resp := do(t, req)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.checkResponse != nil {
				tt.checkResponse(t, resp)
			}
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, tokens := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	resp := postJSON(t, ts.APIURL("/auth/refresh"), map[string]string{"refresh_token": tokens.RefreshToken})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rotated testutil.TokenResponse
	testutil.AssertJSONResponse(t, resp, &rotated)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, "bearer", rotated.TokenType)

	// the old refresh token was consumed by the rotation
	replay := postJSON(t, ts.APIURL("/auth/refresh"), map[string]string{"refresh_token": tokens.RefreshToken})
	defer replay.Body.Close()
	testutil.AssertErrorResponse(t, replay, http.StatusUnauthorized, "invalid or expired refresh token")

	garbage := postJSON(t, ts.APIURL("/auth/refresh"), map[string]string{"refresh_token": "garbage"})
	defer garbage.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, garbage.StatusCode)

	missing := postJSON(t, ts.APIURL("/auth/refresh"), map[string]string{})
	defer missing.Body.Close()
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)

	req := testutil.CreateAuthenticatedRequest(t, "GET", ts.APIURL("/auth/users/me"), nil, rotated.AccessToken)
	me := do(t, req)
	defer me.Body.Close()
	assert.Equal(t, http.StatusOK, me.StatusCode)
}

func TestAuthHandler_Logout(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, tokens := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

	t.Run("unauthorized - no token", func(t *testing.T) {
		req := testutil.CreateAuthenticatedRequest(t, "POST", ts.APIURL("/auth/logout"), map[string]string{}, "")
		resp := do(t, req)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("successful logout", func(t *testing.T) {
		req := testutil.CreateAuthenticatedRequest(t, "POST", ts.APIURL("/auth/logout"),
			map[string]string{"refresh_token": tokens.RefreshToken}, tokens.AccessToken)
		resp := do(t, req)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("access token is blacklisted", func(t *testing.T) {
		req := testutil.CreateAuthenticatedRequest(t, "GET", ts.APIURL("/auth/users/me"), nil, tokens.AccessToken)
		resp := do(t, req)
		defer resp.Body.Close()
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "could not validate credentials")
	})

	t.Run("refresh token is revoked", func(t *testing.T) {
		resp := postJSON(t, ts.APIURL("/auth/refresh"), map[string]string{"refresh_token": tokens.RefreshToken})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthHandler_Logout_OptionalBody(t *testing.T) {
	ts := testutil.NewTestServer(t)

	tests := []struct {
		name           string
		body           string
		contentLength  int64
		expectedStatus int
	}{
		{"chunked empty body", "", -1, http.StatusOK},
		{"no body", "", 0, http.StatusOK},
		{"malformed body", "{", -1, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, tokens := testutil.NewUserBuilder().BuildAndAuthenticate(t, ts)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
			rec := httptest.NewRecorder()
			ts.Server.Config.Handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())

			me := testutil.CreateAuthenticatedRequest(t, "GET", ts.APIURL("/auth/users/me"), nil, tokens.AccessToken)
			resp := do(t, me)
			defer resp.Body.Close()
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			} else {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		})
	}
}
