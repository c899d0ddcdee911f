// Package engine composes retrieval, confidence classification,
// history merging, context packing, answer composition and ticket
// synthesis into the per-request support pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/resolvd/resolvd/internal/faq"
	"github.com/resolvd/resolvd/internal/history"
	"github.com/resolvd/resolvd/internal/retrieval"
	"github.com/resolvd/resolvd/internal/ticket"
)

// ErrEmptyMessage rejects blank input before any external call.
var ErrEmptyMessage = errors.New("message is required")

// Action tells the caller how the engine handled a message.
type Action string

const (
	ActionAnswer  Action = "answer"
	ActionClarify Action = "clarify"
	ActionTicket  Action = "ticket_created"
)

// Request is one inbound user message. ClientHistory carries turns the
// client collected before the conversation was persisted; it is merged
// behind the stored record, never trusted over it.
type Request struct {
	ConversationID uuid.UUID
	Message        string
	ClientHistory  []history.Message
	ForceTicket    bool
}

// Source describes a passage that grounded an answer.
type Source struct {
	ID         int64
	Question   string
	Similarity float64
}

// Result is the engine's reply to one Request.
type Result struct {
	ConversationID uuid.UUID
	Action         Action
	Reply          string
	Sources        []Source
	TicketID       int64
}

// Retriever finds and classifies candidate passages.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]faq.Passage, error)
	Classify(passages []faq.Passage) retrieval.Decision
}

// Composer produces user-facing replies.
type Composer interface {
	Compose(ctx context.Context, question string, passages []faq.Passage, topN int) string
	Clarify(ctx context.Context, question string) string
}

// Packer bounds a transcript to a token budget.
type Packer interface {
	Pack(ctx context.Context, msgs []history.Message, budget int) string
}

// Synthesizer builds ticket drafts.
type Synthesizer interface {
	Synthesize(ctx context.Context, msgs []history.Message) ticket.Draft
}

// ConversationStore persists conversations and messages.
type ConversationStore interface {
	CreateConversation(ctx context.Context) (uuid.UUID, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, msg history.Message) error
	LoadMessages(ctx context.Context, conversationID uuid.UUID) ([]history.Message, error)
}

// TicketStore persists ticket drafts.
type TicketStore interface {
	Insert(ctx context.Context, conversationID uuid.UUID, d ticket.Draft) (int64, error)
}

// Config carries the engine's collaborators and tuning.
type Config struct {
	Retriever     Retriever
	Composer      Composer
	Packer        Packer
	Synthesizer   Synthesizer
	Conversations ConversationStore
	Tickets       TicketStore
	// TokenBudget bounds packed context handed to generation.
	TokenBudget int
	// MaxHistoryTurns caps merged history length.
	MaxHistoryTurns int
	Logger          *slog.Logger
}

// Engine is the support pipeline facade. Each Handle call is one
// independent sequential pipeline; Engine holds no per-request state
// and is safe for concurrent use.
type Engine struct {
	retriever     Retriever
	composer      Composer
	packer        Packer
	synthesizer   Synthesizer
	conversations ConversationStore
	tickets       TicketStore
	budget        int
	maxTurns      int
	logger        *slog.Logger
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	switch {
	case cfg.Retriever == nil:
		return nil, fmt.Errorf("retriever is required")
	case cfg.Composer == nil:
		return nil, fmt.Errorf("composer is required")
	case cfg.Packer == nil:
		return nil, fmt.Errorf("packer is required")
	case cfg.Synthesizer == nil:
		return nil, fmt.Errorf("synthesizer is required")
	case cfg.Conversations == nil:
		return nil, fmt.Errorf("conversation store is required")
	case cfg.Tickets == nil:
		return nil, fmt.Errorf("ticket store is required")
	case cfg.TokenBudget <= 0:
		return nil, fmt.Errorf("token budget must be positive, got %d", cfg.TokenBudget)
	}
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = history.DefaultMaxTurns
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		retriever:     cfg.Retriever,
		composer:      cfg.Composer,
		packer:        cfg.Packer,
		synthesizer:   cfg.Synthesizer,
		conversations: cfg.Conversations,
		tickets:       cfg.Tickets,
		budget:        cfg.TokenBudget,
		maxTurns:      cfg.MaxHistoryTurns,
		logger:        cfg.Logger,
	}, nil
}

// Retrieve returns ranked candidate passages for question.
func (e *Engine) Retrieve(ctx context.Context, question string) ([]faq.Passage, error) {
	return e.retriever.Retrieve(ctx, question)
}

// Classify decides whether the best passage may ground an answer.
func (e *Engine) Classify(passages []faq.Passage) retrieval.Decision {
	return e.retriever.Classify(passages)
}

// MergeHistory combines persisted and client-cached history.
func (e *Engine) MergeHistory(primary, secondary []history.Message) []history.Message {
	return history.Merge(primary, secondary, e.maxTurns)
}

// PackContext bounds msgs to the configured token budget.
func (e *Engine) PackContext(ctx context.Context, msgs []history.Message) string {
	return e.packer.Pack(ctx, msgs, e.budget)
}

// ComposeAnswer builds a grounded reply from passages.
func (e *Engine) ComposeAnswer(ctx context.Context, question string, passages []faq.Passage) string {
	return e.composer.Compose(ctx, question, passages, 0)
}

// SynthesizeTicket builds a ticket draft from msgs.
func (e *Engine) SynthesizeTicket(ctx context.Context, msgs []history.Message) ticket.Draft {
	return e.synthesizer.Synthesize(ctx, msgs)
}

// Handle runs the full pipeline for one user message: persist the
// message, then either escalate to a ticket or answer, asking a
// clarifying question when retrieval confidence is low.
func (e *Engine) Handle(ctx context.Context, req Request) (Result, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Result{}, ErrEmptyMessage
	}

	conversationID := req.ConversationID
	if conversationID == uuid.Nil {
		id, err := e.conversations.CreateConversation(ctx)
		if err != nil {
			return Result{}, err
		}
		conversationID = id
	}

	userMsg := history.Message{Role: history.RoleUser, Content: message}
	if err := e.conversations.AppendMessage(ctx, conversationID, userMsg); err != nil {
		return Result{}, err
	}

	if req.ForceTicket || history.IsTicketIntent(message) {
		return e.escalate(ctx, conversationID, req.ClientHistory)
	}
	return e.answer(ctx, conversationID, message)
}

// answer runs retrieve → classify → compose|clarify and persists the reply.
func (e *Engine) answer(ctx context.Context, conversationID uuid.UUID, message string) (Result, error) {
	passages, err := e.retriever.Retrieve(ctx, message)
	if err != nil {
		return Result{}, err
	}
	decision := e.retriever.Classify(passages)

	res := Result{ConversationID: conversationID}
	if decision.Accepted {
		res.Action = ActionAnswer
		res.Reply = e.composer.Compose(ctx, message, passages, 0)
		for i, p := range passages {
			if i == 3 {
				break
			}
			res.Sources = append(res.Sources, Source{ID: p.ID, Question: p.Question, Similarity: p.Similarity})
		}
	} else {
		res.Action = ActionClarify
		followup := e.composer.Clarify(ctx, message)
		res.Reply = followup + "\n\nIf you'd like, I can create a support ticket. Just say \"create ticket\"."
	}

	reply := history.Message{Role: history.RoleAssistant, Content: res.Reply}
	if err := e.conversations.AppendMessage(ctx, conversationID, reply); err != nil {
		return Result{}, err
	}
	e.logger.Info("message handled", "conversation_id", conversationID, "action", res.Action)
	return res, nil
}

// escalate runs merge → synthesize → persist for a ticket request. The
// persisted record is authoritative; clientHistory only fills gaps from
// before the conversation existed.
func (e *Engine) escalate(ctx context.Context, conversationID uuid.UUID, clientHistory []history.Message) (Result, error) {
	persisted, err := e.conversations.LoadMessages(ctx, conversationID)
	if err != nil {
		return Result{}, err
	}
	merged := history.Merge(persisted, clientHistory, e.maxTurns)

	draft := e.synthesizer.Synthesize(ctx, merged)
	ticketID, err := e.tickets.Insert(ctx, conversationID, draft)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		ConversationID: conversationID,
		Action:         ActionTicket,
		Reply:          fmt.Sprintf("I've created ticket #%d: %s. Our team will follow up.", ticketID, draft.Title),
		TicketID:       ticketID,
	}
	reply := history.Message{Role: history.RoleAssistant, Content: res.Reply}
	if err := e.conversations.AppendMessage(ctx, conversationID, reply); err != nil {
		return Result{}, err
	}
	e.logger.Info("ticket created", "conversation_id", conversationID, "ticket_id", ticketID)
	return res, nil
}
