package config

import (
	"testing"
	"time"

	"github.com/ezqanoon/statute-bot/internal/statutes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "sqlite://./data/chat.db")
	t.Setenv("API_URL", "http://localhost:8007")
	for _, key := range statutes.Keys() {
		t.Setenv(VectorStoreEnv(key), "vs_"+key)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8007", cfg.Port)
	assert.Equal(t, "gpt-4.1-mini", cfg.OpenAI.Model)
	assert.Equal(t, 60*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, time.Second, cfg.Agent.PollInterval)
	assert.False(t, cfg.Agent.Specialists)
	assert.Equal(t, 30*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 6, cfg.Search.TopK)
	assert.Equal(t, "vs_punjab", cfg.VectorStores["punjab"])
	assert.Equal(t, "vs_national", cfg.VectorStores["national"])
	assert.Zero(t, cfg.ChatRetention)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("AGENT_TIMEOUT", "90")
	t.Setenv("SEARCH_TIMEOUT", "15s")
	t.Setenv("SEARCH_TOP_K", "3")
	t.Setenv("STATUTE_SPECIALISTS", "yes")
	t.Setenv("CHAT_RETENTION", "720h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, 90*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 3, cfg.Search.TopK)
	assert.True(t, cfg.Agent.Specialists)
	assert.Equal(t, 720*time.Hour, cfg.ChatRetention)
}

func TestLoadRejectsNegativeRetention(t *testing.T) {
	setRequired(t)
	t.Setenv("CHAT_RETENTION", "-1h")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAT_RETENTION")
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want string
	}{
		{"api key", "OPENAI_API_KEY", "OPENAI_API_KEY"},
		{"database", "DATABASE_URL", "DATABASE_URL"},
		{"api url", "API_URL", "API_URL"},
		{"vector store", "GBA_VECTOR_STORE_ID", "gba"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.env, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadOpenAIOnly(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:1234/v1")

	cfg, err := LoadOpenAI()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1234/v1", cfg.BaseURL)
}

func TestGetEnvDurationFallback(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "soon")
	assert.Equal(t, 5*time.Second, getEnvDuration("SOME_TIMEOUT", 5*time.Second))
}
