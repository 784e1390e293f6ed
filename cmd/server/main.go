// Package main is the entry point for the StadtMeldung report server.
// It provides a REST API over the civic-issue state engine: report
// submission and lifecycle, voting, moderation, area subscriptions,
// analytics, geocoding, a canned-response chat and a discussion board.
//
// Architecture:
//   - All state lives in explicit service containers wired up here and
//     injected into handlers — no package-level singletons
//   - Persistence is a key-value snapshot store (file or Redis), one JSON
//     blob per collection, written best-effort on every mutation
//   - Demo identity: login issues a signed token with self-asserted roles;
//     a persistent device id covers anonymous voting
//   - Derived views (filtered lists, analytics) are recomputed from the
//     current snapshot, memoized by a mutation counter
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/stadtmeldung/report-server/internal/config"
	"github.com/stadtmeldung/report-server/internal/geocode"
	"github.com/stadtmeldung/report-server/internal/handlers"
	"github.com/stadtmeldung/report-server/internal/middleware"
	"github.com/stadtmeldung/report-server/internal/notify"
	"github.com/stadtmeldung/report-server/internal/services"
	"github.com/stadtmeldung/report-server/internal/storage"
	"go.uber.org/zap"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("Failed to load config: %v", err)
	}

	sugar.Infow("Starting StadtMeldung Report Server",
		"port", cfg.Port,
		"env", cfg.Environment,
		"storage", cfg.StorageBackend,
		"geocoder", cfg.GeocoderMode,
	)

	// Initialize the snapshot store
	var store storage.Store
	switch cfg.StorageBackend {
	case "redis":
		redisStore, err := storage.NewRedisStore(cfg.RedisURL, "stadtmeldung")
		if err != nil {
			sugar.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisStore.Close()
		store = redisStore
	default:
		fileStore, err := storage.NewFileStore(cfg.DataDir)
		if err != nil {
			sugar.Fatalf("Failed to open data dir: %v", err)
		}
		store = fileStore
	}

	// Geocoder: demo table or live Nominatim
	var resolver geocode.Resolver
	if cfg.GeocoderMode == "live" {
		resolver = geocode.NewNominatimResolver(cfg.NominatimURL)
	} else {
		resolver = geocode.NewTableResolver()
	}

	// Initialize services
	notifier := notify.NewLogNotifier(sugar)
	identitySvc := services.NewIdentityService(store, sugar, cfg.JWTSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)
	subscriptionSvc := services.NewSubscriptionService(store, sugar)
	reportSvc := services.NewReportService(store, subscriptionSvc, notifier, sugar)
	analyticsSvc := services.NewAnalyticsService(reportSvc)
	chatSvc := services.NewChatService(store, sugar)
	forumSvc := services.NewForumService(store, sugar)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(identitySvc, sugar)
	reportHandler := handlers.NewReportHandler(reportSvc, identitySvc, sugar)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsSvc, sugar)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionSvc, sugar)
	geocodeHandler := handlers.NewGeocodeHandler(resolver, sugar)
	chatHandler := handlers.NewChatHandler(chatSvc, sugar)
	forumHandler := handlers.NewForumHandler(forumSvc, sugar)
	healthHandler := handlers.NewHealthHandler(reportSvc, sugar)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Device-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limiting
	r.Use(middleware.RateLimit(cfg.RateLimitRPM))

	// Session user from bearer token (optional on every route)
	r.Use(middleware.SessionUser(identitySvc))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", healthHandler.Check)

		// Demo identity
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/device", authHandler.Device)
		})

		// Report lifecycle
		r.Route("/reports", func(r chi.Router) {
			r.Post("/", reportHandler.Submit)
			r.Get("/", reportHandler.List)
			r.Get("/export", reportHandler.Export) // admin
			r.Get("/{id}", reportHandler.Get)
			r.Delete("/{id}", reportHandler.Delete)
			r.Post("/{id}/advance", reportHandler.Advance)
			r.Post("/{id}/vote", reportHandler.Vote)
			r.Post("/{id}/approve", reportHandler.Approve) // admin/moderator
			r.Post("/{id}/reject", reportHandler.Reject)   // admin/moderator
		})

		// Preferences
		r.Get("/preferences/notify-on-status", reportHandler.NotifyOnStatus)
		r.Put("/preferences/notify-on-status", reportHandler.NotifyOnStatus)

		// Moderation analytics (role-checked in handler)
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/summary", analyticsHandler.Summary)
			r.Get("/trends", analyticsHandler.Trends)
			r.Get("/categories", analyticsHandler.Categories)
			r.Get("/statuses", analyticsHandler.Statuses)
		})

		// Area/zip subscriptions
		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", subscriptionHandler.List)
			r.Post("/", subscriptionHandler.Add)
			r.Delete("/{index}", subscriptionHandler.Remove)
		})

		// Geocoding
		r.Get("/geocode", geocodeHandler.Resolve)
		r.Get("/geocode/areas", geocodeHandler.Areas)

		// Chat widget
		r.Get("/chat", chatHandler.History)
		r.Post("/chat", chatHandler.Post)

		// Forum board
		r.Route("/forum", func(r chi.Router) {
			r.Get("/", forumHandler.List)
			r.Post("/", forumHandler.CreateThread)
			r.Post("/{id}/comments", forumHandler.Reply)
			r.Delete("/{id}", forumHandler.DeleteThread)
			r.Delete("/{id}/comments/{cid}", forumHandler.DeleteComment)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sugar.Infof("Server listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	sugar.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Fatalf("Forced shutdown: %v", err)
	}

	sugar.Info("Server stopped")
}
