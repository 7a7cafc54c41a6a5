package main

import (
	"bytes"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
)

var apiBase = envOr("API_BASE", "http://localhost:8080/api")

type User struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func do(req *http.Request, out interface{}) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed (%d): %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func postJSON(path, token string, payload, out interface{}) error {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest(http.MethodPost, apiBase+path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(req, out)
}

func registerUser(name, password string) (*User, error) {
	email := name + "@example.com"

	var env envelope
	if err := postJSON("/auth/register", "", map[string]string{
		"name": name, "email": email, "password": password,
	}, &env); err != nil {
		return nil, err
	}
	var user User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := postJSON("/auth/token", "", map[string]string{"email": email, "password": password}, &tokens); err != nil {
		return nil, err
	}

	user.Password = password
	user.Token = tokens.AccessToken
	return &user, nil
}

func createCategory(token, name string) error {
	return postJSON("/categories", token, map[string]string{"name": name}, nil)
}

func createItem(token, name, category string) (uint, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("name", name)
	w.WriteField("description", "demo item")
	w.WriteField("recycle", "check your local rules")
	w.WriteField("is_recyclable", "true")
	w.WriteField("category_name", category)
	w.Close()

	req, _ := http.NewRequest(http.MethodPost, apiBase+"/items", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	var env envelope
	if err := do(req, &env); err != nil {
		return 0, err
	}
	var item struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(env.Data, &item); err != nil {
		return 0, fmt.Errorf("decode failed: %w", err)
	}
	return item.ID, nil
}

func logView(token string, itemID uint) error {
	return postJSON("/histories", token, map[string]uint{"item_id": itemID}, nil)
}

func generateUsername(index int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	random := make([]byte, 4)
	for i := range random {
		random[i] = letters[rand.Intn(len(letters))]
	}
	return fmt.Sprintf("demo_%d_%d_%s", index, time.Now().Unix(), string(random))
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	fmt.Println("Seeding demo catalog and view history...")

	password := "demopassword123"
	var users []*User

	fmt.Println("\nRegistering 4 users...")
	for i := 1; i <= 4; i++ {
		user, err := registerUser(generateUsername(i), password)
		if err != nil {
			fail("Failed to register user %d: %v", i, err)
		}
		users = append(users, user)
		fmt.Printf("  ✓ User %d: %s (id %d)\n", i, user.Name, user.ID)
	}

	suffix := fmt.Sprintf("%d", time.Now().Unix())
	categories := []string{"Plastic " + suffix, "Paper " + suffix, "Glass " + suffix}
	fmt.Println("\nCreating categories and items...")
	var itemIDs []uint
	for _, category := range categories {
		if err := createCategory(users[0].Token, category); err != nil {
			fail("Failed to create category %q: %v", category, err)
		}
		for j := 1; j <= 3; j++ {
			id, err := createItem(users[0].Token, fmt.Sprintf("%s item %d", category, j), category)
			if err != nil {
				fail("Failed to create item: %v", err)
			}
			itemIDs = append(itemIDs, id)
		}
	}
	fmt.Printf("  ✓ %d categories, %d items\n", len(categories), len(itemIDs))

	// overlapping windows so every user has neighbours
	fmt.Println("\nLogging views...")
	views := 0
	for i, user := range users {
		for _, id := range itemIDs[i : i+6] {
			if err := logView(user.Token, id); err != nil {
				fail("Failed to log view: %v", err)
			}
			views++
		}
	}
	fmt.Printf("  ✓ %d views\n", views)

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/histories/recommendation/%d", apiBase, users[0].ID), nil)
	req.Header.Set("Authorization", "Bearer "+users[0].Token)
	var env envelope
	if err := do(req, &env); err != nil {
		fail("Failed to fetch recommendations: %v", err)
	}

	fmt.Println("\n" + "============================================================")
	fmt.Println("DEMO SEED COMPLETE")
	fmt.Println("============================================================")
	fmt.Printf("\nRecommendations for %s:\n%s\n", users[0].Name, string(env.Data))

	fmt.Println("\nUsers (all use password: " + password + "):")
	for i, user := range users {
		fmt.Printf("  User %d: %s\n", i+1, user.Email)
	}

	jsonOutput, _ := json.MarshalIndent(map[string]interface{}{"users": users, "items": itemIDs}, "", "  ")
	fmt.Println("\nJSON OUTPUT (for scripts):")
	fmt.Println(string(jsonOutput))
}
