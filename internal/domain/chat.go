// Package domain contains core domain types for the statute bot.
package domain

import (
	"errors"
	"time"
)

// ErrEmptyChatID is returned when a message is stored without a chat.
var ErrEmptyChatID = errors.New("chat_id is required")

// ChatMessage is one completed question/answer turn of a chat.
// Turns are appended once and never updated.
type ChatMessage struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ChatID    string    `json:"chat_id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the fields every stored turn must carry.
func (m *ChatMessage) Validate() error {
	if m.ChatID == "" {
		return ErrEmptyChatID
	}
	if m.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}
