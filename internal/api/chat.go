package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ezqanoon/statute-bot/internal/agent"
	"github.com/ezqanoon/statute-bot/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// QueryResponse is the body of every /query response.
type QueryResponse struct {
	Answer string `json:"answer"`
}

// DeleteResponse is the body of every /delete response.
type DeleteResponse struct {
	Success bool   `json:"success"`
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// Query answers a user question in the context of the chat's earlier turns
// and stores the new turn. It always responds 200; failures are reported
// as an answer starting with "Error: ".
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := params.Get("query")
	userID := params.Get("user_id")
	chatID := params.Get("chat_id")

	log := h.logger.With("chat_id", chatID, "user_id", userID, "request_id", middleware.GetReqID(r.Context()))

	answer, err := h.answer(r, log.With("query_length", len(query)), query, userID, chatID)
	if err != nil {
		log.Error("query failed", "error", err)
		answer = "Error: " + err.Error()
	}
	JSON(w, http.StatusOK, QueryResponse{Answer: answer})
}

func (h *Handler) answer(r *http.Request, log *slog.Logger, query, userID, chatID string) (answer string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("internal error: %v", p)
		}
	}()

	if err := requireParams(query, userID, chatID); err != nil {
		return "", err
	}
	ctx := r.Context()

	history, err := h.repo.ListMessages(ctx, chatID)
	if err != nil {
		return "", err
	}
	log.Info("received query", "history_turns", len(history))

	result, err := h.runner.Run(ctx, h.agent, RenderInput(history, query))
	if err != nil {
		var runErr *agent.RunError
		if errors.As(err, &runErr) {
			log.Info("agent run did not complete", "outcome", runErr.Outcome())
		}
		return "", err
	}

	msg := &domain.ChatMessage{UserID: userID, ChatID: chatID, Query: query, Answer: result.Output}
	if err := h.repo.AppendMessage(ctx, msg); err != nil {
		return "", err
	}
	log.Info("answered query", "message_id", msg.ID, "answer_length", len(result.Output))

	return result.Output, nil
}

func requireParams(query, userID, chatID string) error {
	var missing []string
	for _, p := range []struct{ name, value string }{
		{"query", query}, {"user_id", userID}, {"chat_id", chatID},
	} {
		if strings.TrimSpace(p.value) == "" {
			missing = append(missing, p.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required parameter: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DeleteChat removes every stored turn of a chat.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chat_id")
	log := h.logger.With("chat_id", chatID)

	deleted, err := h.repo.DeleteChat(r.Context(), chatID)
	if err != nil {
		log.Error("delete chat failed", "error", err)
		JSON(w, http.StatusOK, DeleteResponse{
			Success: false,
			ChatID:  chatID,
			Message: "Error deleting chat: " + err.Error(),
		})
		return
	}

	log.Info("chat deleted", "messages", deleted)
	JSON(w, http.StatusOK, DeleteResponse{
		Success: true,
		ChatID:  chatID,
		Message: "Chat deleted successfully.",
	})
}

// RenderInput builds the agent input from the chat's earlier turns, oldest
// first. Without history the query is passed on unchanged.
func RenderInput(history []*domain.ChatMessage, query string) string {
	if len(history) == 0 {
		return query
	}

	lines := make([]string, 0, 2*len(history))
	for _, msg := range history {
		lines = append(lines, "User: "+msg.Query, "Assistant: "+msg.Answer)
	}

	var b strings.Builder
	b.WriteString("Here is the previous conversation with this user:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nNow the user asks:\n")
	b.WriteString(query)
	return b.String()
}
