package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ezqanoon/statute-bot/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// testRepository exercises behaviour every backend must share. Chat IDs are
// unique per call so a shared Postgres database can be reused.
func testRepository(t *testing.T, repo Repository) {
	ctx := context.Background()
	chatID := "chat-" + uuid.NewString()
	otherChat := "chat-" + uuid.NewString()

	t.Run("append fills id and timestamp", func(t *testing.T) {
		msg := &domain.ChatMessage{UserID: "u1", ChatID: chatID, Query: "q1", Answer: "a1"}
		require.NoError(t, repo.AppendMessage(ctx, msg))
		assert.NotZero(t, msg.ID)
		assert.False(t, msg.CreatedAt.IsZero())
	})

	t.Run("list is oldest first and scoped by chat", func(t *testing.T) {
		base := time.Now().Add(time.Hour)
		require.NoError(t, repo.AppendMessage(ctx, &domain.ChatMessage{
			UserID: "u1", ChatID: chatID, Query: "q3", Answer: "a3", CreatedAt: base.Add(time.Second),
		}))
		require.NoError(t, repo.AppendMessage(ctx, &domain.ChatMessage{
			UserID: "u1", ChatID: chatID, Query: "q2", Answer: "a2", CreatedAt: base,
		}))
		require.NoError(t, repo.AppendMessage(ctx, &domain.ChatMessage{
			UserID: "u2", ChatID: otherChat, Query: "other", Answer: "other",
		}))

		msgs, err := repo.ListMessages(ctx, chatID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, []string{"q1", "q2", "q3"}, []string{msgs[0].Query, msgs[1].Query, msgs[2].Query})
		assert.Equal(t, "a2", msgs[1].Answer)
		assert.Equal(t, "u1", msgs[1].UserID)
	})

	t.Run("equal timestamps fall back to insertion order", func(t *testing.T) {
		chat := "chat-" + uuid.NewString()
		at := time.Now().Truncate(time.Microsecond)
		for _, q := range []string{"first", "second"} {
			require.NoError(t, repo.AppendMessage(ctx, &domain.ChatMessage{
				UserID: "u1", ChatID: chat, Query: q, Answer: q, CreatedAt: at,
			}))
		}
		msgs, err := repo.ListMessages(ctx, chat)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "first", msgs[0].Query)
	})

	t.Run("delete removes only that chat", func(t *testing.T) {
		n, err := repo.DeleteChat(ctx, chatID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		msgs, err := repo.ListMessages(ctx, chatID)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		others, err := repo.ListMessages(ctx, otherChat)
		require.NoError(t, err)
		assert.Len(t, others, 1)
	})

	t.Run("delete unknown chat succeeds", func(t *testing.T) {
		n, err := repo.DeleteChat(ctx, "chat-"+uuid.NewString())
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("append rejects missing chat id", func(t *testing.T) {
		err := repo.AppendMessage(ctx, &domain.ChatMessage{UserID: "u1", Query: "q", Answer: "a"})
		assert.ErrorIs(t, err, domain.ErrEmptyChatID)
	})

	t.Run("prune removes only old turns", func(t *testing.T) {
		chat := "chat-" + uuid.NewString()
		old := time.Now().Add(-48 * time.Hour)
		require.NoError(t, repo.AppendMessage(ctx, &domain.ChatMessage{
			UserID: "u1", ChatID: chat, Query: "old", Answer: "old", CreatedAt: old,
		}))
		require.NoError(t, repo.AppendMessage(ctx, &domain.ChatMessage{
			UserID: "u1", ChatID: chat, Query: "new", Answer: "new",
		}))

		n, err := repo.PruneBefore(ctx, old.Add(time.Minute))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		msgs, err := repo.ListMessages(ctx, chat)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "new", msgs[0].Query)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}

func TestSQLiteRepository(t *testing.T) {
	testRepository(t, newSQLiteStore(t))
}

func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := NewPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	testRepository(t, s)

	t.Run("database assigns created_at", func(t *testing.T) {
		ctx := context.Background()
		var before, after time.Time
		require.NoError(t, s.pool.QueryRow(ctx, "SELECT now()").Scan(&before))

		msg := &domain.ChatMessage{UserID: "u1", ChatID: "chat-" + uuid.NewString(), Query: "q", Answer: "a"}
		require.NoError(t, s.AppendMessage(ctx, msg))

		require.NoError(t, s.pool.QueryRow(ctx, "SELECT now()").Scan(&after))
		assert.False(t, msg.CreatedAt.Before(before))
		assert.False(t, msg.CreatedAt.After(after))

		_, err := s.DeleteChat(ctx, msg.ChatID)
		require.NoError(t, err)
	})
}

func TestSQLitePragmasApplyToEveryConnection(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	// Hold both connections so the pool has to open a second one.
	first, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for i, conn := range []*sql.Conn{first, second} {
		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode, "connection %d", i)

		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout, "connection %d", i)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(ctx, &domain.ChatMessage{UserID: "u", ChatID: "c", Query: "q", Answer: "a"}))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	msgs, err := s.ListMessages(ctx, "c")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].Answer)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	repo, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, repo)
	require.NoError(t, repo.Close())

	repo, err = Open(ctx, filepath.Join(t.TempDir(), "b.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, repo)
	require.NoError(t, repo.Close())

	_, err = Open(ctx, "mysql://localhost/db")
	assert.ErrorContains(t, err, `unsupported database scheme "mysql"`)

	_, err = Open(ctx, "")
	assert.Error(t, err)
}
