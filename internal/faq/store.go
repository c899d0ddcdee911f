// Package faq provides the knowledge-base passage store backed by
// PostgreSQL + pgvector. Passages are authored and embedded out of band;
// this package only reads them.
package faq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrSearch indicates a vector similarity search failure.
var ErrSearch = errors.New("faq search failed")

// SearchTimeout bounds a single vector search query.
const SearchTimeout = 10 * time.Second

// Passage is a knowledge-base entry returned by similarity search.
type Passage struct {
	ID         int64
	Question   string
	Answer     string
	Similarity float64
}

// Store reads FAQ passages from PostgreSQL.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a passage Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// SearchSimilar returns up to k passages whose cosine similarity to the
// query embedding is at least minSim, ordered by ascending distance.
func (s *Store) SearchSimilar(ctx context.Context, embedding []float32, k int, minSim float64) ([]Passage, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrSearch, k)
	}

	queryCtx, cancel := context.WithTimeout(ctx, SearchTimeout)
	defer cancel()

	vec := pgvector.NewVector(embedding)
	rows, err := s.pool.Query(queryCtx,
		`SELECT id, question, answer, 1 - (embedding <=> $1) AS similarity
		 FROM faq
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		vec, minSim, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	defer rows.Close()

	passages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Passage, error) {
		var p Passage
		err := row.Scan(&p.ID, &p.Question, &p.Answer, &p.Similarity)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scanning rows: %v", ErrSearch, err)
	}

	s.logger.Debug("faq search", "candidates", len(passages), "limit", k, "min_similarity", minSim)
	return passages, nil
}

// Count returns the number of passages with a stored embedding.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM faq WHERE embedding IS NOT NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}
