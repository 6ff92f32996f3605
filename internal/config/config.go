// Package config provides application configuration with multi-source priority.
//
// Sources, highest priority first:
//  1. Environment variables (AIRI_* overrides, secrets)
//  2. Config file (~/.airi/config.yaml, or ./config.yaml)
//  3. Defaults
//
// The resulting Config value is immutable after Load and is passed explicitly
// into every component constructor; no package reads configuration ambiently.
//
// Security: secrets (LLM API key, Postgres password, embedder API key) are
// masked by MarshalJSON and String so a logged Config never leaks them.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidTemperature indicates the sampling temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidCharBudget indicates the context character budget is too small.
	ErrInvalidCharBudget = errors.New("invalid context char budget")

	// ErrInvalidHistoryDepth indicates the history fetch depth is out of range.
	ErrInvalidHistoryDepth = errors.New("invalid history depth")

	// ErrInvalidInitialLoadSize indicates the session hydration window is out of range.
	ErrInvalidInitialLoadSize = errors.New("invalid initial load size")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidMemoryTopK indicates the memory search result count is out of range.
	ErrInvalidMemoryTopK = errors.New("invalid memory top-k")

	// ErrInvalidScoreThreshold indicates the memory similarity threshold is out of range.
	ErrInvalidScoreThreshold = errors.New("invalid score threshold")
)

const (
	// DefaultCharBudget bounds the generation prompt: system instruction plus
	// new message plus pruned history must stay under this many characters.
	DefaultCharBudget = 12000

	// DefaultInitialLoadSize is how many recent messages a full session
	// aggregate hydrates.
	DefaultInitialLoadSize = 30

	// DefaultHistoryDepth is how many recent messages the orchestrator fetches
	// as pruning candidates for one turn.
	DefaultHistoryDepth = 30

	// DefaultMemoryTopK is how many memory fragments a turn retrieves.
	DefaultMemoryTopK = 3

	// DefaultScoreThreshold filters memory search results by cosine similarity.
	DefaultScoreThreshold = 0.7
)

// Config stores the application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON. When adding a secret
// field, update MarshalJSON too.
type Config struct {
	// Generation
	Model       string  `mapstructure:"model" json:"model"`                 // e.g. "llama3", "gpt-4o-mini"
	LLMBaseURL  string  `mapstructure:"llm_base_url" json:"llm_base_url"`   // OpenAI-compatible endpoint
	LLMAPIKey   string  `mapstructure:"llm_api_key" json:"llm_api_key"`     // SENSITIVE
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"` // 0 = provider default
	CharBudget  int     `mapstructure:"char_budget" json:"char_budget"`

	// Context assembly
	HistoryDepth    int     `mapstructure:"history_depth" json:"history_depth"`
	InitialLoadSize int     `mapstructure:"initial_load_size" json:"initial_load_size"`
	MemoryTopK      int     `mapstructure:"memory_top_k" json:"memory_top_k"`
	ScoreThreshold  float64 `mapstructure:"score_threshold" json:"score_threshold"`

	// Embeddings
	EmbedderModel  string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderAPIKey string `mapstructure:"embedder_api_key" json:"embedder_api_key"` // SENSITIVE

	// Storage
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Web search
	SearXNGBaseURL string `mapstructure:"searxng_base_url" json:"searxng_base_url"`
}

// Load reads configuration with priority env > file > defaults and validates it.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".airi")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model", "llama3")
	v.SetDefault("llm_base_url", "http://localhost:11434/v1")
	v.SetDefault("llm_api_key", "ollama")
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("char_budget", DefaultCharBudget)

	v.SetDefault("history_depth", DefaultHistoryDepth)
	v.SetDefault("initial_load_size", DefaultInitialLoadSize)
	v.SetDefault("memory_top_k", DefaultMemoryTopK)
	v.SetDefault("score_threshold", DefaultScoreThreshold)

	v.SetDefault("embedder_model", "gemini-embedding-001")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "airi")
	v.SetDefault("postgres_password", "airi_dev_password")
	v.SetDefault("postgres_db_name", "airi")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("searxng_base_url", "http://localhost:8888")
}

// bindEnvVariables binds secret and override environment variables explicitly.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("llm_base_url", "AIRI_LLM_BASE_URL")
	mustBind("llm_api_key", "AIRI_LLM_API_KEY")
	mustBind("model", "AIRI_MODEL")
	mustBind("embedder_api_key", "GEMINI_API_KEY")
	mustBind("postgres_password", "AIRI_POSTGRES_PASSWORD")
	mustBind("searxng_base_url", "AIRI_SEARXNG_BASE_URL")
}

// Validate performs fail-fast range checks on the loaded configuration.
func (c *Config) Validate() error {
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %.2f (must be in [0, 2])", ErrInvalidTemperature, c.Temperature)
	}
	if c.CharBudget < 1000 {
		return fmt.Errorf("%w: %d (must be >= 1000)", ErrInvalidCharBudget, c.CharBudget)
	}
	if c.HistoryDepth < 1 || c.HistoryDepth > 1000 {
		return fmt.Errorf("%w: %d (must be in [1, 1000])", ErrInvalidHistoryDepth, c.HistoryDepth)
	}
	if c.InitialLoadSize < 1 || c.InitialLoadSize > 1000 {
		return fmt.Errorf("%w: %d (must be in [1, 1000])", ErrInvalidInitialLoadSize, c.InitialLoadSize)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.MemoryTopK < 1 || c.MemoryTopK > 50 {
		return fmt.Errorf("%w: %d (must be in [1, 50])", ErrInvalidMemoryTopK, c.MemoryTopK)
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("%w: %.2f (must be in [0, 1])", ErrInvalidScoreThreshold, c.ScoreThreshold)
	}
	return nil
}

// ConnString returns the pgx connection URL for the configured database.
func (c *Config) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}

// maskedValue replaces secrets in serialized output. Full-width blocks avoid
// substring collisions with real secret characters.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Short secrets are fully masked;
// longer ones keep the first and last two characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.LLMAPIKey = maskSecret(a.LLMAPIKey)
	a.EmbedderAPIKey = maskSecret(a.EmbedderAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
