// Package api provides HTTP handlers for the statute bot API.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ezqanoon/statute-bot/internal/agent"
	"github.com/ezqanoon/statute-bot/internal/store"
	"github.com/go-chi/chi/v5"
)

// Runner runs an agent to completion.
type Runner interface {
	Run(ctx context.Context, a *agent.Agent, input string) (*agent.Result, error)
}

// Handler serves the chat endpoints.
type Handler struct {
	repo   store.Repository
	runner Runner
	agent  *agent.Agent
	apiURL string
	logger *slog.Logger
}

// NewHandler creates a new Handler. The agent answers every query.
func NewHandler(repo store.Repository, runner Runner, a *agent.Agent, apiURL string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:   repo,
		runner: runner,
		agent:  a,
		apiURL: apiURL,
		logger: logger,
	}
}

// RegisterRoutes registers the chat and config routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/query", h.Query)
	r.Delete("/delete/{chat_id}", h.DeleteChat)
	r.Get("/config", h.Config)
}

// Config exposes the public API URL to the landing page.
func (h *Handler) Config(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"apiUrl": h.apiURL})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
