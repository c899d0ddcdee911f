// Package retrieval turns a user question into ranked knowledge-base
// passages and classifies whether the best match is trustworthy enough
// to answer from.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"
)

// Embedding failure sentinels.
var (
	ErrEmbedding         = errors.New("embedding failed")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// EmbedTimeout bounds a single embedding call.
const EmbedTimeout = 15 * time.Second

// EmbedMode selects the asymmetric task type for embedding. Queries and
// stored documents use different modes so that short questions land near
// the longer passages that answer them.
type EmbedMode string

const (
	ModeQuery    EmbedMode = "RETRIEVAL_QUERY"
	ModeDocument EmbedMode = "RETRIEVAL_DOCUMENT"
)

// Embedder wraps a genkit embedder with a fixed output dimensionality.
// Vectors of any other size are rejected before they reach the database.
type Embedder struct {
	embedder  ai.Embedder
	dimension int32
	logger    *slog.Logger
}

// NewEmbedder creates an Embedder producing vectors of the given dimension.
func NewEmbedder(embedder ai.Embedder, dimension int, logger *slog.Logger) (*Embedder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{embedder: embedder, dimension: int32(dimension), logger: logger}, nil
}

// Embed generates a vector for text in the given mode.
func (e *Embedder) Embed(ctx context.Context, text string, mode EmbedMode) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input", ErrEmbedding)
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	dim := e.dimension
	resp, err := e.embedder.Embed(embedCtx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{
			TaskType:             string(mode),
			OutputDimensionality: &dim,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbedding)
	}

	vec := resp.Embeddings[0].Embedding
	if len(vec) != int(e.dimension) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), e.dimension)
	}
	return vec, nil
}
