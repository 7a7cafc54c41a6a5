package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ecosort/recycle-assistant/internal/cache"
	"github.com/ecosort/recycle-assistant/internal/repository"
	"github.com/ecosort/recycle-assistant/internal/repository/postgres"
	"github.com/ecosort/recycle-assistant/internal/service"
	"github.com/ecosort/recycle-assistant/internal/storage"
	"github.com/ecosort/recycle-assistant/internal/testutil"
)

type fixture struct {
	db       *testutil.TestDB
	repos    *repository.Repositories
	services *service.Services
	images   *storage.LocalStore
	cache    *memoryCache
	stub     *testutil.StubClassifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)

	images, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create image store: %v", err)
	}
	mem := newMemoryCache()
	stub := testutil.NewStubClassifier()

	services := service.NewServices(repos, testutil.TestConfig(), service.Dependencies{
		Images:     images,
		Cache:      mem,
		Classifier: stub,
	})

	return &fixture{
		db:       testDB,
		repos:    repos,
		services: services,
		images:   images,
		cache:    mem,
		stub:     stub,
	}
}

// memoryCache is an in-process cache.Store that ignores TTLs.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}
