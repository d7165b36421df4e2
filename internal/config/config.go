// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ezqanoon/statute-bot/internal/statutes"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	APIURL      string // advertised to the landing page through /config
	DatabaseURL string
	// ChatRetention bounds how long chat turns are kept. Zero keeps them forever.
	ChatRetention time.Duration
	OpenAI      OpenAIConfig
	Agent       AgentConfig
	Search      SearchConfig
	// VectorStores maps jurisdiction keys to vector store IDs.
	VectorStores statutes.StoreIDs
}

// OpenAIConfig configures the hosted model.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AgentConfig controls the top-level agent run.
type AgentConfig struct {
	Timeout      time.Duration
	PollInterval time.Duration
	// Specialists wraps each jurisdiction in its own sub-agent.
	Specialists bool
}

// SearchConfig controls vector store searches.
type SearchConfig struct {
	Timeout time.Duration
	TopK    int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	openAI, err := LoadOpenAI()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8007"),
		APIURL:        getEnv("API_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		ChatRetention: getEnvDuration("CHAT_RETENTION", 0),
		OpenAI:        *openAI,
		Agent: AgentConfig{
			Timeout:      getEnvDuration("AGENT_TIMEOUT", 60*time.Second),
			PollInterval: getEnvDuration("POLL_INTERVAL", time.Second),
			Specialists:  getEnvBool("STATUTE_SPECIALISTS", false),
		},
		Search: SearchConfig{
			Timeout: getEnvDuration("SEARCH_TIMEOUT", 30*time.Second),
			TopK:    getEnvInt("SEARCH_TOP_K", 6),
		},
		VectorStores: loadVectorStores(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOpenAI reads only the hosted model settings. The ingestion CLI needs
// nothing else.
func LoadOpenAI() (*OpenAIConfig, error) {
	cfg := &OpenAIConfig{
		APIKey:  getEnv("OPENAI_API_KEY", ""),
		Model:   getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		BaseURL: getEnv("OPENAI_BASE_URL", ""),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the hosted model settings.
func (c *OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return errors.New("OPENAI_API_KEY cannot be empty")
	}
	if c.Model == "" {
		return errors.New("OPENAI_MODEL cannot be empty")
	}
	return nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if err := c.OpenAI.Validate(); err != nil {
		return err
	}
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL cannot be empty")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API_URL cannot be empty")
	}
	if c.Agent.Timeout <= 0 || c.Search.Timeout <= 0 {
		return fmt.Errorf("AGENT_TIMEOUT and SEARCH_TIMEOUT must be > 0")
	}
	if c.Agent.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be > 0")
	}
	if c.ChatRetention < 0 {
		return fmt.Errorf("CHAT_RETENTION cannot be negative")
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("SEARCH_TOP_K must be > 0")
	}
	if err := c.VectorStores.Validate(); err != nil {
		return fmt.Errorf("%w (set <JURISDICTION>_VECTOR_STORE_ID)", err)
	}
	return nil
}

// VectorStoreEnv is the environment variable holding a jurisdiction's store.
func VectorStoreEnv(key string) string {
	return strings.ToUpper(key) + "_VECTOR_STORE_ID"
}

// VectorStoreID reads one jurisdiction's store from the environment.
func VectorStoreID(key string) string {
	return strings.TrimSpace(getEnv(VectorStoreEnv(key), ""))
}

func loadVectorStores() statutes.StoreIDs {
	stores := make(statutes.StoreIDs, len(statutes.Jurisdictions))
	for _, key := range statutes.Keys() {
		stores[key] = VectorStoreID(key)
	}
	return stores
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("45s") and bare seconds ("45").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
