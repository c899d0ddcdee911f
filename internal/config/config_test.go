package config

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// validBaseConfig returns a Config with all required fields set.
func validBaseConfig() *Config {
	return &Config{
		Provider:           ProviderGemini,
		ModelName:          "gemini-2.5-flash",
		Temperature:        0.2,
		MaxTokens:          700,
		EmbedderModel:      DefaultEmbedderModel,
		EmbeddingDimension: DefaultEmbeddingDimension,
		Retrieval: RetrievalConfig{
			TopK:             8,
			MinSimilarity:    0.15,
			StrongSimilarity: 0.33,
			AcceptMargin:     0.06,
		},
		Context: ContextConfig{
			ModelTokenLimit:      8000,
			ReservedOutputTokens: 700,
			SafetyMarginTokens:   300,
			MaxHistoryTurns:      60,
		},
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "resolvd",
		PostgresPassword: "test_password",
		PostgresDBName:   "resolvd",
		PostgresSSLMode:  "disable",
	}
}

func TestValidateSuccess(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	cfg := validBaseConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error with valid config: %v", err)
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := validBaseConfig()
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate() = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidateRetrieval(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"top_k too large", func(c *Config) { c.Retrieval.TopK = 51 }},
		{"negative floor", func(c *Config) { c.Retrieval.MinSimilarity = -0.1 }},
		{"margin above one", func(c *Config) { c.Retrieval.AcceptMargin = 1.5 }},
		{"floor above strong", func(c *Config) {
			c.Retrieval.MinSimilarity = 0.5
			c.Retrieval.StrongSimilarity = 0.3
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidRetrieval) {
				t.Errorf("Validate() = %v, want ErrInvalidRetrieval", err)
			}
		})
	}
}

func TestValidateTokenBudget(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	cfg := validBaseConfig()
	cfg.Context.ModelTokenLimit = 900 // below reserved + margin
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidTokenBudget) {
		t.Errorf("Validate() = %v, want ErrInvalidTokenBudget", err)
	}

	cfg = validBaseConfig()
	cfg.Context.MaxHistoryTurns = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidTokenBudget) {
		t.Errorf("Validate() = %v, want ErrInvalidTokenBudget", err)
	}
}

func TestValidatePostgres(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-api-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgresHost},
		{"bad port", func(c *Config) { c.PostgresPort = 0 }, ErrInvalidPostgresPort},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgresDBName},
		{"deprecated ssl mode", func(c *Config) { c.PostgresSSLMode = "prefer" }, ErrInvalidPostgresSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestContextBudget(t *testing.T) {
	c := ContextConfig{ModelTokenLimit: 8000, ReservedOutputTokens: 700, SafetyMarginTokens: 300}
	if got := c.Budget(); got != 7000 {
		t.Errorf("Budget() = %d, want 7000", got)
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	cfg := validBaseConfig()
	cfg.PostgresPassword = "super_secret_password"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), "super_secret_password") {
		t.Error("MarshalJSON leaked postgres password")
	}
}

func TestFullModelName(t *testing.T) {
	cfg := validBaseConfig()
	if got := cfg.FullModelName(); got != "googleai/gemini-2.5-flash" {
		t.Errorf("FullModelName() = %q", got)
	}

	cfg.ModelName = "googleai/gemini-2.5-pro"
	if got := cfg.FullModelName(); got != "googleai/gemini-2.5-pro" {
		t.Errorf("FullModelName() should pass through qualified names, got %q", got)
	}
}

func TestPostgresConnectionStringQuotesPassword(t *testing.T) {
	cfg := validBaseConfig()
	cfg.PostgresPassword = "pass word's"

	dsn := cfg.PostgresConnectionString()
	if !strings.Contains(dsn, `password='pass word\'s'`) {
		t.Errorf("DSN did not quote password correctly: %s", dsn)
	}
}

func TestPostgresURL(t *testing.T) {
	cfg := validBaseConfig()
	url := cfg.PostgresURL()
	if !strings.HasPrefix(url, "postgres://") {
		t.Errorf("PostgresURL() = %q, want postgres:// scheme", url)
	}
	if !strings.Contains(url, "sslmode=disable") {
		t.Errorf("PostgresURL() missing sslmode: %q", url)
	}
}

func TestParseDatabaseURL(t *testing.T) {
	cfg := validBaseConfig()
	t.Setenv("DATABASE_URL", "postgres://u:p@db.example.com:5433/support?sslmode=require")

	if err := cfg.parseDatabaseURL(); err != nil {
		t.Fatalf("parseDatabaseURL: %v", err)
	}
	if cfg.PostgresHost != "db.example.com" || cfg.PostgresPort != 5433 {
		t.Errorf("host/port = %s/%d", cfg.PostgresHost, cfg.PostgresPort)
	}
	if cfg.PostgresUser != "u" || cfg.PostgresPassword != "p" {
		t.Errorf("credentials not applied")
	}
	if cfg.PostgresDBName != "support" || cfg.PostgresSSLMode != "require" {
		t.Errorf("dbname/sslmode = %s/%s", cfg.PostgresDBName, cfg.PostgresSSLMode)
	}
}

func TestParseDatabaseURLRejectsWrongScheme(t *testing.T) {
	cfg := validBaseConfig()
	t.Setenv("DATABASE_URL", "mysql://u:p@host/db")

	if err := cfg.parseDatabaseURL(); err == nil {
		t.Error("parseDatabaseURL accepted non-postgres scheme")
	}
}
