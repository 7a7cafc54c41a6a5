package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecosort/recycle-assistant/internal/api"
	"github.com/ecosort/recycle-assistant/internal/cache"
	"github.com/ecosort/recycle-assistant/internal/classifier"
	"github.com/ecosort/recycle-assistant/internal/config"
	"github.com/ecosort/recycle-assistant/internal/logging"
	"github.com/ecosort/recycle-assistant/internal/repository/postgres"
	"github.com/ecosort/recycle-assistant/internal/service"
	"github.com/ecosort/recycle-assistant/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	// Initialize database
	db, err := postgres.NewConnection(cfg.DSN())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize repositories
	repos := postgres.NewRepositories(db)

	images, err := newImageStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("backend", cfg.StorageBackend).Msg("failed to initialize image storage")
	}

	deps := service.Dependencies{Images: images}

	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logging.Warn().Err(err).Msg("redis unavailable, recommendations will not be cached")
		} else {
			defer rdb.Close()
			deps.Cache = cache.NewRedisStore(rdb, cfg.AppName+":")
		}
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := classifier.NewGeminiClient(context.Background(), classifier.GeminiConfig{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiModelName,
			Endpoint: cfg.GeminiEndpoint,
			Timeout:  cfg.ClassifierTimeout,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to create classifier")
		}
		deps.Classifier = gemini
	} else {
		logging.Warn().Msg("GEMINI_API_KEY not set, image classification is disabled")
	}

	// Initialize services
	services := service.NewServices(repos, cfg, deps)

	// Initialize router
	router := api.NewRouter(services, cfg)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ClassifierTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logging.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logging.Info().Msg("server stopped")
}

func newImageStore(cfg *config.Config) (storage.ImageStore, error) {
	if cfg.StorageBackend == "s3" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Prefix:          "items/",
		})
	}
	return storage.NewLocalStore(cfg.StorageDir)
}
