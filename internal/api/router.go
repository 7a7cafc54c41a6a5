package api

import (
	"net/http"

	"github.com/ecosort/recycle-assistant/internal/api/handlers"
	"github.com/ecosort/recycle-assistant/internal/api/middleware"
	"github.com/ecosort/recycle-assistant/internal/config"
	"github.com/ecosort/recycle-assistant/internal/service"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(services *service.Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logger())
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	maxUpload := cfg.MaxUploadMB << 20
	authHandler := handlers.NewAuthHandler(services.Auth)
	userHandler := handlers.NewUserHandler(services.Users)
	categoryHandler := handlers.NewCategoryHandler(services.Catalog)
	itemHandler := handlers.NewItemHandler(services.Catalog, maxUpload)
	historyHandler := handlers.NewHistoryHandler(services.Recommendations)
	classifyHandler := handlers.NewClassifyHandler(services.Classifications, maxUpload)
	requireAuth := middleware.Auth(services.Auth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(cfg.LoginRateLimit))
				r.Post("/register", authHandler.Register)
				r.Post("/token", authHandler.Token)
			})
			r.Post("/refresh", authHandler.Refresh)

			// Protected auth routes
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", authHandler.Logout)
				r.Get("/users/me", authHandler.Me)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/{id}", userHandler.Get)
			r.Patch("/{id}", userHandler.Update)
			r.Delete("/{id}", userHandler.Delete)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.List)
			r.Get("/{id}", categoryHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", categoryHandler.Create)
				r.Patch("/{id}", categoryHandler.Update)
			})
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Get("/{id}", itemHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", itemHandler.Create)
				r.Patch("/{id}", itemHandler.Update)
				r.Delete("/{id}", itemHandler.Delete)
			})
		})

		r.Route("/histories", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", historyHandler.Create)
			r.Get("/recommendation/{id}", historyHandler.Recommendations)
		})

		r.Route("/classify", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", classifyHandler.Classify)
			r.Get("/history", classifyHandler.History)
		})
	})

	return r
}
