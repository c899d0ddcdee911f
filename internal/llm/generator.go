// Package llm wraps the external text-generation capability.
//
// The engine consumes the Generator interface only; the Genkit-backed Client
// is the production implementation. Resilience (retry, rate limiting) lives
// here at the capability boundary, not inside the engine stages.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrGeneration marks any failure of the text-generation capability.
// Callers recover from it with deterministic fallbacks; it is never shown
// to end users as an error.
var ErrGeneration = errors.New("generation failed")

// Request describes one generation call.
type Request struct {
	System      string  // system instruction (may be empty)
	Prompt      string  // user prompt
	MaxTokens   int     // output token cap; 0 = client default
	Temperature float32 // sampling temperature
}

// Generator is the text-generation capability consumed by the engine.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config contains required parameters for Client.
type Config struct {
	Genkit      *genkit.Genkit
	ModelName   string  // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	MaxTokens   int     // default output cap when Request.MaxTokens is zero
	Temperature float32 // default sampling temperature when Request.Temperature is zero
	Logger      *slog.Logger

	// Resilience (zero values use defaults)
	Retry       RetryConfig
	RateLimiter *rate.Limiter
}

// Client calls the generation model through Genkit.
// Safe for concurrent use.
type Client struct {
	g           *genkit.Genkit
	modelName   string
	maxTokens   int
	temperature float32
	retry       RetryConfig
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a generation client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return nil, errors.New("model name is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 {
		retryCfg = DefaultRetryConfig()
	}

	// Default: 10 requests/sec sustained, burst of 30.
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 700
	}

	return &Client{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		retry:       retryCfg,
		limiter:     limiter,
		logger:      logger,
	}, nil
}

// Generate runs one generation request with retry on transient errors.
// All failures are wrapped in ErrGeneration.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrGeneration)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	opts := []ai.GenerateOption{
		ai.WithPrompt(req.Prompt),
		ai.WithModelName(c.modelName),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(temperature),
			// #nosec G115 -- maxTokens is a small positive config value
			MaxOutputTokens: int32(maxTokens),
		}),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}

	resp, err := c.generateWithRetry(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: model returned empty response", ErrGeneration)
	}
	return text, nil
}
