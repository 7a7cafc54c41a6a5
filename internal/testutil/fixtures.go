package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/ecosort/recycle-assistant/internal/classifier"
	"github.com/ecosort/recycle-assistant/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	name     string
	email    string
	password string
	disabled bool
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		name:     fmt.Sprintf("testuser_%s", suffix),
		email:    fmt.Sprintf("testuser_%s@example.com", suffix),
		password: "testpassword123",
	}
}

// WithName sets the user name
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// Disabled marks the user as soft deleted
func (b *UserBuilder) Disabled() *UserBuilder {
	b.disabled = true
	return b
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		Name:         b.name,
		Email:        b.email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if b.disabled {
		if err := db.Model(user).Update("disabled", true).Error; err != nil {
			t.Fatalf("failed to disable user: %v", err)
		}
		user.Disabled = true
	}

	return user, b.password
}

// TokenResponse matches the API token response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// BuildAndAuthenticate creates a user via the API, logs in and returns the
// user and the token pair
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, TokenResponse) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"name":     b.name,
		"email":    b.email,
		"password": b.password,
	})

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var envelope struct {
		Data domain.User `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return &envelope.Data, Login(t, ts, b.email, b.password)
}

// Login exchanges credentials for a token pair
func Login(t *testing.T, ts *TestServer, email, password string) TokenResponse {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(ts.APIURL("/auth/token"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status code: %d", resp.StatusCode)
	}

	var tokens TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		t.Fatalf("failed to decode token response: %v", err)
	}
	return tokens
}

// CreateCategory inserts a category directly
func CreateCategory(t *testing.T, db *gorm.DB, name string) *domain.Category {
	t.Helper()

	category := &domain.Category{
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	return category
}

// ItemBuilder creates test items
type ItemBuilder struct {
	name       string
	category   *domain.Category
	recyclable bool
}

// NewItemBuilder creates a new ItemBuilder with default values
func NewItemBuilder(category *domain.Category) *ItemBuilder {
	return &ItemBuilder{
		name:       fmt.Sprintf("item_%s", uuid.New().String()[:8]),
		category:   category,
		recyclable: true,
	}
}

// WithName sets the item name
func (b *ItemBuilder) WithName(name string) *ItemBuilder {
	b.name = name
	return b
}

// Build creates the item in the database
func (b *ItemBuilder) Build(t *testing.T, db *gorm.DB) *domain.Item {
	t.Helper()

	item := &domain.Item{
		Name:         b.name,
		Description:  "test item",
		Recycle:      "put it in the right bin",
		IsRecyclable: b.recyclable,
		CategoryID:   b.category.ID,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("failed to create item: %v", err)
	}
	return item
}

// SeedItems creates count items in category
func SeedItems(t *testing.T, db *gorm.DB, category *domain.Category, count int) []*domain.Item {
	t.Helper()

	items := make([]*domain.Item, count)
	for i := 0; i < count; i++ {
		items[i] = NewItemBuilder(category).Build(t, db)
	}
	return items
}

// SeedViews inserts one history row per (user, item) pair
func SeedViews(t *testing.T, db *gorm.DB, userID uint, items ...*domain.Item) {
	t.Helper()

	for _, item := range items {
		row := &domain.History{UserID: userID, ItemID: item.ID, ViewedAt: time.Now()}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("failed to create history: %v", err)
		}
	}
}

// CreateAuthenticatedRequest builds a JSON request with a bearer token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// MultipartFile is one file part of a multipart request
type MultipartFile struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// CreateMultipartRequest builds a multipart/form-data request with a bearer token
func CreateMultipartRequest(t *testing.T, method, url string, fields map[string]string, file *MultipartFile, token string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
		h.Set("Content-Type", file.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create file part: %v", err)
		}
		part.Write(file.Data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// StubClassifier is a classifier.Classifier with a settable answer
type StubClassifier struct {
	mu     sync.Mutex
	result *classifier.Result
	err    error
	calls  int
}

// NewStubClassifier returns a stub that answers "not identified"
func NewStubClassifier() *StubClassifier {
	return &StubClassifier{result: &classifier.Result{Raw: []byte(`{"identified":false}`)}}
}

// Respond sets the next answers
func (s *StubClassifier) Respond(result *classifier.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
	s.err = err
}

// Calls returns how many times Classify ran
func (s *StubClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StubClassifier) Classify(ctx context.Context, image []byte, mimeType string) (*classifier.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.result
	return &copied, nil
}

func (s *StubClassifier) ModelName() string { return "stub-model" }

func (s *StubClassifier) Prompt() string { return "stub prompt" }
