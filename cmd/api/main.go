// Package main is the entry point for the form bot server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/formbot/internal/chatwoot"
	"github.com/capitalize-ai/formbot/internal/config"
	"github.com/capitalize-ai/formbot/internal/dialogue"
	"github.com/capitalize-ai/formbot/internal/handler"
	"github.com/capitalize-ai/formbot/internal/middleware"
	natsclient "github.com/capitalize-ai/formbot/internal/nats"
	"github.com/capitalize-ai/formbot/internal/service"
	"github.com/capitalize-ai/formbot/internal/state"
	"github.com/capitalize-ai/formbot/pkg/logger"
	"github.com/capitalize-ai/formbot/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	for _, warning := range cfg.Validate() {
		log.Warn("configuration warning", zap.String("detail", warning))
	}

	log.Info("starting form bot server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "formbot", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() { _ = tracing.Shutdown(context.Background(), tp) }()
		}
	}

	// State store
	var store state.Store
	if cfg.RedisAddr != "" {
		redisStore, err := state.NewRedisStore(state.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.StateTTL,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisStore.Close() }()
		store = redisStore
	} else {
		log.Warn("REDIS_ADDR not set, conversation state is kept in memory")
		store = state.NewMemoryStore(cfg.StateTTL)
	}

	// Submission relay
	var relay service.Relay = service.NopRelay{}
	var natsHealth handler.ConnectionChecker
	if cfg.NATSEnabled {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		if err := natsclient.EnsureStream(ctx, natsClient.JetStream()); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		relay = natsclient.NewStreamManager(natsClient)
		natsHealth = natsClient
	}

	// Chatwoot client and dialogue engine
	chatwootClient := chatwoot.NewClient(chatwoot.Config{
		BaseURL:      cfg.ChatwootBaseURL,
		AccountID:    cfg.ChatwootAccountID,
		AccessToken:  cfg.ChatwootAccessToken,
		Timeout:      cfg.ChatwootTimeout,
		RateLimit:    cfg.ChatwootRateLimit,
		MenuEncoding: cfg.MenuEncoding,
	}, log)
	router := dialogue.NewRouter(dialogue.Options{AgentNotes: cfg.AgentNotes})

	// Initialize services
	botSvc := service.NewBotService(router, store, chatwootClient, relay, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(store, natsHealth)
	webhookHandler := handler.NewWebhookHandler(botSvc, log)
	stateHandler := handler.NewStateHandler(botSvc, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing("formbot"))
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Chatwoot webhook
	r.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.WebhookToken(cfg.WebhookToken))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/chatwoot", webhookHandler.Receive)
	})

	// Admin API with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/conversations/{id}", func(r chi.Router) {
			r.With(middleware.RequireScope(middleware.ScopeAdmin)).Delete("/", stateHandler.Forget)

			r.Get("/state", stateHandler.Get)
			r.With(middleware.RequireScope(middleware.ScopeAdmin)).Delete("/state", stateHandler.Reset)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening",
			zap.String("port", cfg.ServerPort),
			zap.String("chatwoot", cfg.ChatwootBaseURL),
			zap.String("menu_encoding", cfg.MenuEncoding),
			zap.Bool("agent_notes", cfg.AgentNotes),
			zap.Bool("nats", cfg.NATSEnabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.IsDevelopment() {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.LogLevel)
}
