package config

import (
	"fmt"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API key (required for embedding and generation)
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	// Model configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.Temperature < 0.0 || c.Temperature > 2.0 {
		return fmt.Errorf("%w: must be between 0.0 and 2.0, got %.2f", ErrInvalidTemperature, c.Temperature)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 2097152 {
		return fmt.Errorf("%w: must be between 1 and 2,097,152, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	// Embedding configuration
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.EmbeddingDimension < 1 {
		return fmt.Errorf("%w: embedding_dimension must be positive, got %d",
			ErrInvalidEmbedderModel, c.EmbeddingDimension)
	}

	// Retrieval tuning
	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 50 {
		return fmt.Errorf("%w: top_k must be between 1 and 50, got %d",
			ErrInvalidRetrieval, c.Retrieval.TopK)
	}
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"min_similarity", c.Retrieval.MinSimilarity},
		{"strong_similarity", c.Retrieval.StrongSimilarity},
		{"accept_margin", c.Retrieval.AcceptMargin},
	} {
		if v.value < 0 || v.value > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %v",
				ErrInvalidRetrieval, v.name, v.value)
		}
	}
	if c.Retrieval.MinSimilarity > c.Retrieval.StrongSimilarity {
		return fmt.Errorf("%w: min_similarity %v exceeds strong_similarity %v",
			ErrInvalidRetrieval, c.Retrieval.MinSimilarity, c.Retrieval.StrongSimilarity)
	}

	// Context budget must leave room for at least one message after reserves.
	if c.Context.Budget() < 1 {
		return fmt.Errorf("%w: model limit %d minus reserves leaves no input budget",
			ErrInvalidTokenBudget, c.Context.ModelTokenLimit)
	}
	if c.Context.MaxHistoryTurns < 1 {
		return fmt.Errorf("%w: max_history_turns must be positive, got %d",
			ErrInvalidTokenBudget, c.Context.MaxHistoryTurns)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Modern SSL modes only; allow/prefer are deprecated (MITM vulnerable).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
