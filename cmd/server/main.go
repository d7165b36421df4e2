// EzQanoon Statute Bot Server
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

	"github.com/ezqanoon/statute-bot/internal/agent"
	"github.com/ezqanoon/statute-bot/internal/api"
	"github.com/ezqanoon/statute-bot/internal/assistant"
	"github.com/ezqanoon/statute-bot/internal/config"
	"github.com/ezqanoon/statute-bot/internal/middleware"
	"github.com/ezqanoon/statute-bot/internal/retention"
	"github.com/ezqanoon/statute-bot/internal/retrieval"
	"github.com/ezqanoon/statute-bot/internal/statutes"
	"github.com/ezqanoon/statute-bot/internal/store"
	"github.com/ezqanoon/statute-bot/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	slog.Info("Starting server", "port", cfg.Port, "model", cfg.OpenAI.Model, "specialists", cfg.Agent.Specialists)

	// Initialize dependencies.
	repo, err := store.Open(context.Background(), cfg.DatabaseURL)
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

	host, err := assistant.NewOpenAIClient(assistant.OpenAIConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize OpenAI client", "error", err)
		os.Exit(1)
	}

	searcher := retrieval.NewSearcher(host, cfg.OpenAI.Model,
		retrieval.WithTopK(cfg.Search.TopK),
		retrieval.WithTimeout(cfg.Search.Timeout),
		retrieval.WithPollInterval(cfg.Agent.PollInterval),
		retrieval.WithLogger(logger),
	)

	legalBot, err := statutes.NewAgent(searcher, statutes.Options{
		Model:       cfg.OpenAI.Model,
		Stores:      cfg.VectorStores,
		Specialists: cfg.Agent.Specialists,
	})
	if err != nil {
		slog.Error("Failed to build agent", "error", err)
		os.Exit(1)
	}
	slog.Info("Agent ready", "agent", legalBot.Name(), "tools", len(legalBot.Tools()))

	runner := agent.NewRunner(host,
		agent.WithPollInterval(cfg.Agent.PollInterval),
		agent.WithTimeout(cfg.Agent.Timeout),
		agent.WithLogger(logger),
	)

	// Initialize handlers.
	chatHandler := api.NewHandler(repo, runner, legalBot, cfg.APIURL, logger)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS([]string{"*"}))

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)

	// Serve embedded landing page.
	r.Handle("/*", web.Handler())

	// Agent runs can take a while (nested searches poll for up to a minute
	// each), so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retentionDone := retention.StartWorker(ctx, repo, cfg.ChatRetention, retention.DefaultInterval)

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

	<-retentionDone
	slog.Info("Server stopped successfully")
}
