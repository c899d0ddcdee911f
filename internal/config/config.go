// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.resolvd/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: model selection, temperature, max output tokens, embedder
//   - Retrieval: top-K, similarity floor, confidence thresholds
//   - Context: token budget for conversation packing
//   - Storage: PostgreSQL connection
//   - Observability: OTLP trace export to a local agent
//
// All thresholds live here as explicit, immutable values handed to components
// at construction. Nothing reads ambient global state at decision time, so
// tests can run with alternate thresholds.
//
// Error handling uses sentinel errors for errors.Is() checks, wrapped with
// fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidRetrieval indicates a retrieval tuning value is out of range.
	ErrInvalidRetrieval = errors.New("invalid retrieval setting")

	// ErrInvalidTokenBudget indicates the context token budget is unusable.
	ErrInvalidTokenBudget = errors.New("invalid token budget")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 supports truncation to smaller output dimensions
	// via OutputDimensionality; the faq schema stores 384-dimension vectors.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbeddingDimension matches the vector(384) column in the faq table.
	DefaultEmbeddingDimension = 384
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderGoogleAI = "googleai"
)

// RetrievalConfig carries the retrieval and confidence tuning values.
// The zero value is not useful; Load applies the recommended defaults.
type RetrievalConfig struct {
	// TopK is the number of candidates requested from the vector store.
	TopK int `mapstructure:"top_k" json:"top_k"`
	// MinSimilarity is the retrieval floor; candidates below it are noise.
	MinSimilarity float64 `mapstructure:"min_similarity" json:"min_similarity"`
	// StrongSimilarity is the absolute acceptance threshold for the top hit.
	StrongSimilarity float64 `mapstructure:"strong_similarity" json:"strong_similarity"`
	// AcceptMargin is the top-vs-second gap that accepts a moderate top hit.
	AcceptMargin float64 `mapstructure:"accept_margin" json:"accept_margin"`
}

// ContextConfig bounds conversation packing for generation input.
type ContextConfig struct {
	// ModelTokenLimit is the hard input limit of the generation model.
	ModelTokenLimit int `mapstructure:"model_token_limit" json:"model_token_limit"`
	// ReservedOutputTokens is held back for the model's own response.
	ReservedOutputTokens int `mapstructure:"reserved_output_tokens" json:"reserved_output_tokens"`
	// SafetyMarginTokens absorbs estimator error against the real tokenizer.
	SafetyMarginTokens int `mapstructure:"safety_margin_tokens" json:"safety_margin_tokens"`
	// MaxHistoryTurns caps merged history length before packing.
	MaxHistoryTurns int `mapstructure:"max_history_turns" json:"max_history_turns"`
}

// Budget returns the packing budget: model limit minus reserved output minus margin.
func (c ContextConfig) Budget() int {
	return c.ModelTokenLimit - c.ReservedOutputTokens - c.SafetyMarginTokens
}

// AgentConfig holds OTLP trace export settings for the local telemetry agent.
type AgentConfig struct {
	// Host is the agent OTLP HTTP endpoint (default: localhost:4318)
	Host string `mapstructure:"host"`
	// Environment is the deployment environment tag (default: dev)
	Environment string `mapstructure:"environment"`
	// ServiceName is the service name reported on traces (default: resolvd)
	ServiceName string `mapstructure:"service_name"`
	// Enabled turns trace export on; off by default for local use.
	Enabled bool `mapstructure:"enabled"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Embedding configuration
	EmbedderModel      string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbeddingDimension int    `mapstructure:"embedding_dimension" json:"embedding_dimension"`

	// Retrieval and confidence tuning
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`

	// Context packing budget
	Context ContextConfig `mapstructure:"context" json:"context"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Observability configuration
	Agent AgentConfig `mapstructure:"agent" json:"agent"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".resolvd")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is not an error; defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.2)
	viper.SetDefault("max_tokens", 700)

	// Embedding defaults
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedding_dimension", DefaultEmbeddingDimension)

	// Retrieval defaults (recommended starting points; all tunable)
	viper.SetDefault("retrieval.top_k", 8)
	viper.SetDefault("retrieval.min_similarity", 0.15)
	viper.SetDefault("retrieval.strong_similarity", 0.33)
	viper.SetDefault("retrieval.accept_margin", 0.06)

	// Context packing defaults
	viper.SetDefault("context.model_token_limit", 8000)
	viper.SetDefault("context.reserved_output_tokens", 700)
	viper.SetDefault("context.safety_margin_tokens", 300)
	viper.SetDefault("context.max_history_turns", 60)

	// PostgreSQL defaults for local development
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "resolvd")
	viper.SetDefault("postgres_password", "resolvd_dev_password")
	viper.SetDefault("postgres_db_name", "resolvd")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Telemetry agent defaults
	viper.SetDefault("agent.host", "localhost:4318")
	viper.SetDefault("agent.environment", "dev")
	viper.SetDefault("agent.service_name", "resolvd")
	viper.SetDefault("agent.enabled", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "RESOLVD_PROVIDER")
	mustBind("model_name", "RESOLVD_MODEL_NAME")
	mustBind("embedder_model", "RESOLVD_EMBEDDER_MODEL")
	mustBind("agent.enabled", "RESOLVD_TRACING")
	mustBind("agent.host", "RESOLVD_AGENT_HOST")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
	// Validate() checks its presence.
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Example: "googleai/gemini-2.5-flash". If ModelName already contains a "/",
// it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return ProviderGoogleAI + "/" + c.ModelName
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
