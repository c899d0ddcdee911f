package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/resolvd/resolvd/internal/faq"
)

// Params are the tuned retrieval thresholds. Zero values are invalid;
// use DefaultParams or derive from configuration.
type Params struct {
	// TopK is the maximum number of passages fetched per query.
	TopK int
	// MinSimilarity is the floor below which candidates are discarded
	// at the database.
	MinSimilarity float64
	// StrongSimilarity accepts the best match outright when met.
	StrongSimilarity float64
	// AcceptMargin accepts a weaker best match when it clears the
	// runner-up by at least this much.
	AcceptMargin float64
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{
		TopK:             8,
		MinSimilarity:    0.15,
		StrongSimilarity: 0.33,
		AcceptMargin:     0.06,
	}
}

// Decision is the outcome of confidence classification.
type Decision struct {
	// Accepted reports whether the best passage may ground an answer.
	Accepted bool
	// Best is the top-ranked passage, nil when retrieval found nothing.
	Best *faq.Passage
}

// Searcher finds passages near a query embedding.
type Searcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, k int, minSim float64) ([]faq.Passage, error)
}

// Retriever embeds questions and ranks knowledge-base passages.
type Retriever struct {
	embedder *Embedder
	searcher Searcher
	params   Params
	logger   *slog.Logger
}

// NewRetriever creates a Retriever with the given thresholds.
func NewRetriever(embedder *Embedder, searcher Searcher, params Params, logger *slog.Logger) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if params.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", params.TopK)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, searcher: searcher, params: params, logger: logger}, nil
}

// Retrieve returns up to TopK passages for question, ordered by
// descending similarity. An empty result means no passage cleared the
// similarity floor; it is not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]faq.Passage, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	vec, err := r.embedder.Embed(ctx, question, ModeQuery)
	if err != nil {
		return nil, err
	}

	passages, err := r.searcher.SearchSimilar(ctx, vec, r.params.TopK, r.params.MinSimilarity)
	if err != nil {
		return nil, err
	}

	// The index returns ascending-distance order; re-sort on the
	// similarity score we actually rank by so downstream code can
	// rely on it even if the two ever disagree.
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Similarity > passages[j].Similarity
	})

	if len(passages) > 0 {
		r.logger.Debug("retrieved passages",
			"count", len(passages),
			"best_id", passages[0].ID,
			"best_similarity", passages[0].Similarity)
	} else {
		r.logger.Debug("no passages above similarity floor")
	}
	return passages, nil
}

// Classify decides whether the best passage is trustworthy enough to
// ground an answer. It accepts when the best similarity meets
// StrongSimilarity, or when it beats the runner-up by AcceptMargin.
// A single passage stands unopposed and is judged on strength alone.
func (r *Retriever) Classify(passages []faq.Passage) Decision {
	return classify(passages, r.params)
}

func classify(passages []faq.Passage, p Params) Decision {
	if len(passages) == 0 {
		return Decision{}
	}

	best := passages[0]
	if best.Similarity >= p.StrongSimilarity {
		return Decision{Accepted: true, Best: &best}
	}
	if len(passages) > 1 && best.Similarity-passages[1].Similarity >= p.AcceptMargin {
		return Decision{Accepted: true, Best: &best}
	}
	return Decision{Best: &best}
}
