package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ezqanoon/statute-bot/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Repository using PostgreSQL. The table layout
// matches chat_messages databases created by earlier deployments.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresStore)(nil)

// NewPostgres connects to Postgres and ensures the schema exists.
func NewPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id SERIAL PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		chat_id VARCHAR NOT NULL,
		query TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS ix_chat_messages_chat_id ON chat_messages(chat_id);
	CREATE INDEX IF NOT EXISTS ix_chat_messages_user_id ON chat_messages(user_id);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// AppendMessage stores a completed turn.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	// A zero CreatedAt leaves the timestamp to the database clock.
	var createdAt *time.Time
	if !msg.CreatedAt.IsZero() {
		createdAt = &msg.CreatedAt
	}

	query := `
	INSERT INTO chat_messages (user_id, chat_id, query, answer, created_at)
	VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, now()))
	RETURNING id, created_at`

	var id int32
	if err := s.pool.QueryRow(ctx, query,
		msg.UserID, msg.ChatID, msg.Query, msg.Answer, createdAt,
	).Scan(&id, &msg.CreatedAt); err != nil {
		return fmt.Errorf("append message to chat %s: %w", msg.ChatID, err)
	}
	msg.ID = int64(id)
	return nil
}

// ListMessages returns every turn of a chat, oldest first.
func (s *PostgresStore) ListMessages(ctx context.Context, chatID string) ([]*domain.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, chat_id, query, answer, created_at
		FROM chat_messages WHERE chat_id = $1
		ORDER BY created_at ASC, id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage
		var id int32
		if err := rows.Scan(&id, &msg.UserID, &msg.ChatID, &msg.Query, &msg.Answer, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message row: %w", err)
		}
		msg.ID = int64(id)
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return msgs, nil
}

// DeleteChat removes every turn of a chat.
func (s *PostgresStore) DeleteChat(ctx context.Context, chatID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE chat_id = $1`, chatID)
	if err != nil {
		return 0, fmt.Errorf("delete chat %s: %w", chatID, err)
	}
	return tag.RowsAffected(), nil
}

// PruneBefore removes every turn created before cutoff.
func (s *PostgresStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_messages WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune chat messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
