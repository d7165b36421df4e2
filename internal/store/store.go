// Package store provides chat history persistence.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ezqanoon/statute-bot/internal/domain"
)

// Repository persists chat turns.
type Repository interface {
	// AppendMessage stores a completed turn and fills in its ID and CreatedAt.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error

	// ListMessages returns every turn of a chat, oldest first.
	ListMessages(ctx context.Context, chatID string) ([]*domain.ChatMessage, error)

	// DeleteChat removes every turn of a chat and returns how many were removed.
	// Deleting an unknown chat is not an error.
	DeleteChat(ctx context.Context, chatID string) (int64, error)

	// PruneBefore removes every turn created before cutoff and returns how
	// many were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Open selects a backend from the DSN: postgres:// and postgresql:// URLs use
// Postgres, sqlite:// URLs and bare paths use SQLite.
func Open(ctx context.Context, dsn string) (Repository, error) {
	switch {
	case dsn == "":
		return nil, fmt.Errorf("empty database URL")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case strings.Contains(dsn, "://") && !strings.HasPrefix(dsn, "sqlite://"):
		scheme, _, _ := strings.Cut(dsn, "://")
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	default:
		s, err := NewSQLite(strings.TrimPrefix(dsn, "sqlite://"))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
