package ticket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists ticket drafts.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a ticket Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Insert persists a draft for a conversation and returns the ticket id.
// New tickets start in status "new".
func (s *Store) Insert(ctx context.Context, conversationID uuid.UUID, d Draft) (int64, error) {
	refs := d.FAQRefs
	if refs == nil {
		refs = []int64{}
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tickets (conversation_id, title, summary, severity, environment, faq_refs)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		conversationID, d.Title, d.Summary, d.Severity, d.Environment, refs).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting ticket: %w", err)
	}
	s.logger.Info("ticket created",
		"ticket_id", id,
		"conversation_id", conversationID,
		"severity", d.Severity,
		"environment", d.Environment)
	return id, nil
}
