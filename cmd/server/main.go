// Workpal - marketing site, customer dashboard, and admin review console.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/sayonsom/workpal/internal/api"
	"github.com/sayonsom/workpal/internal/auth"
	"github.com/sayonsom/workpal/internal/config"
	"github.com/sayonsom/workpal/internal/counter"
	"github.com/sayonsom/workpal/internal/dashboard"
	"github.com/sayonsom/workpal/internal/gateway"
	"github.com/sayonsom/workpal/internal/live"
	"github.com/sayonsom/workpal/internal/mailer"
	"github.com/sayonsom/workpal/internal/middleware"
	"github.com/sayonsom/workpal/internal/review"
	"github.com/sayonsom/workpal/internal/session"
	"github.com/sayonsom/workpal/internal/store"
	"github.com/sayonsom/workpal/internal/transcript"
	"github.com/sayonsom/workpal/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "backend", cfg.BackendBaseURL, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	// Initialize services.
	sessions := session.NewManager(repo, cfg.SessionTTL, cfg.IsDevelopment())
	gw := gateway.New(cfg.BackendBaseURL, sessions)
	reviewSvc := review.NewService(gw)
	dashboardSvc := dashboard.NewService(gw)

	mail := mailer.New(cfg.Mail.BaseURL, cfg.Mail.APIKey)
	if cfg.Mail.APIKey == "" {
		slog.Warn("RESEND_API_KEY not set, contact and booking forms will fail")
	}
	betaCounter := counter.New(cfg.Counter.RestURL, cfg.Counter.RestToken)
	if cfg.Counter.RestURL == "" {
		slog.Info("Counter store not configured, beta count will serve the fallback snapshot")
	}

	// Initialize handlers.
	authHandler := auth.NewHandler(gw, sessions)
	dashboardHandler := dashboard.NewHandler(dashboardSvc, sessions)
	reviewHandler := review.NewHandler(reviewSvc, sessions)
	formsHandler := api.NewFormsHandler(mail, cfg.Mail)
	betaHandler := api.NewBetaHandler(betaCounter, cfg.Counter.Key, cfg.Counter.BetaTotal)
	transcriptHandler := api.NewTranscriptHandler(transcript.NewFetcher())
	liveHandler := live.NewHandler(reviewSvc, sessions, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))

	// Public routes.
	authHandler.RegisterRoutes(r)
	formsHandler.RegisterRoutes(r)
	betaHandler.RegisterRoutes(r)
	transcriptHandler.RegisterRoutes(r)

	// Authenticated routes (session middleware applied per group).
	dashboardHandler.RegisterRoutes(r)
	reviewHandler.RegisterRoutes(r)

	// Live updates for the admin console.
	r.Get("/ws/reviews", liveHandler.ServeHTTP)

	// Serve embedded frontend behind the cookie route gate (SPA catch-all).
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthGate)
		r.Handle("/*", web.SPAHandler())
	})

	// Create server.
	// Note: the admin live websocket is long-lived (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start session sweep worker.
	session.StartSweeper(ctx, repo, cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
