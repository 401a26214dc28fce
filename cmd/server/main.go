// Command server runs the Keyword Alchemist API: prepaid credit keys,
// AI blog post generation, and payment webhooks. Subcommands are dispatched
// via a switch on os.Args so the binary's CLI surface is readable in one
// place; serve runs pending migrations on startup so fresh deployments never
// need a separate migration step.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keyword-alchemist-service/internal/config"
	"github.com/keyword-alchemist-service/internal/gemini"
	"github.com/keyword-alchemist-service/internal/handler"
	"github.com/keyword-alchemist-service/internal/handler/admin"
	"github.com/keyword-alchemist-service/internal/middleware"
	"github.com/keyword-alchemist-service/internal/service"
	"github.com/keyword-alchemist-service/internal/store"
	"github.com/keyword-alchemist-service/internal/stripe"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(cfg)
	case "migrate":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg.DatabaseURL, os.Args[2])
	case "version":
		fmt.Printf("keyword-alchemist v%s\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q (available: serve, migrate, version)", command)
	}
}

func serve(cfg *config.Config) error {
	setupLogging(cfg.LogLevel)

	if err := runMigrations(cfg.DatabaseURL, "up"); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	st := store.NewPostgres(pool)

	keygen := service.NewKeyGenerator()
	ledger := service.NewCreditLedger(st)
	generator := gemini.NewClient(cfg.GeminiAPIKey)
	processor := service.NewKeywordProcessor(ledger, st, generator)
	keys := service.NewKeyService(st, keygen)

	stripeClient := stripe.NewClient(cfg.StripeSecretKey)
	checkout := service.NewCheckoutService(stripeClient, st, cfg.FrontendURL)
	verifier := stripe.NewWebhookVerifier(cfg.StripeWebhookSecret)
	webhooks := service.NewWebhookProcessor(st, keygen, verifier)

	googleAuth, err := middleware.NewGoogleAuth(cfg.GoogleClientID, cfg.GoogleAllowedDomain, cfg.GoogleAllowedEmails)
	if err != nil {
		return fmt.Errorf("initializing admin auth: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	authAttempts := middleware.NewAuthAttemptLimiter(10, 15*time.Minute, 30*time.Minute)
	adminAttempts := middleware.NewAuthAttemptLimiter(5, 15*time.Minute, 1*time.Hour)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(middleware.RequestMetrics)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Method(http.MethodGet, "/health", handler.NewHealthHandler(st))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(rateLimiter))

		// The webhook body is signed raw bytes; it skips RequireJSON so a
		// provider quirk in the Content-Type header cannot drop real events.
		r.Method(http.MethodPost, "/payments/webhook", handler.NewWebhookHandler(webhooks))
		r.Method(http.MethodGet, "/payments/session/{sessionID}", handler.NewSessionHandler(checkout))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireJSON)
			r.Method(http.MethodPost, "/auth/validate", handler.NewValidateHandler(processor, authAttempts))
			r.Method(http.MethodPost, "/keywords/process", handler.NewKeywordsHandler(processor))
			r.Method(http.MethodPost, "/payments/checkout", handler.NewCheckoutHandler(checkout))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(googleAuth.Middleware(adminAttempts))
		r.Method(http.MethodGet, "/keys", admin.NewListKeysHandler(st))
		r.With(middleware.RequireJSON).Method(http.MethodPost, "/keys", admin.NewCreateKeyHandler(keys))
		r.With(middleware.RequireJSON).Method(http.MethodPatch, "/keys/{key}", admin.NewUpdateKeyStatusHandler(keys))
		r.Method(http.MethodGet, "/analytics", admin.NewAnalyticsHandler(st))
		r.Method(http.MethodPost, "/analytics/clear", admin.NewClearAnalyticsHandler(st))
		r.Method(http.MethodDelete, "/keys", admin.NewDeleteAllKeysHandler(st))
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runMigrations(databaseURL, direction string) error {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}
	defer m.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Info().Str("direction", direction).Msg("migrations applied")
	return nil
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func corsOrigins(cfg *config.Config) []string {
	if len(cfg.CORSOrigins) > 0 {
		return cfg.CORSOrigins
	}
	return []string{cfg.FrontendURL}
}
