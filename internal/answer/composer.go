// Package answer composes grounded, citation-bearing replies from
// retrieved passages, with deterministic fallbacks when generation is
// unavailable.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resolvd/resolvd/internal/faq"
	"github.com/resolvd/resolvd/internal/llm"
)

// DefaultTopN is how many passages ground an answer.
const DefaultTopN = 3

// NoConfidenceReply is returned when retrieval produced nothing usable.
const NoConfidenceReply = "I'm not fully sure based on the current FAQs."

// clarifyFallback is used when the generator cannot produce a follow-up.
const clarifyFallback = "Could you share a bit more detail (what you tried, the exact error message, and your account email)?"

const answerSystemPrompt = `You are a helpful support assistant.
Answer ONLY using the provided FAQs. Be concise (1-3 short paragraphs).
Cite facts with [FAQ-<id>] at the end of sentences where used.
If the context does not contain the answer, say you're not sure and suggest relevant FAQs. Never invent info.`

const clarifySystemPrompt = `Ask ONE short clarifying question to resolve the user's issue.
No preamble. Keep it under 18 words.`

// Composer builds user-facing replies.
type Composer struct {
	gen    llm.Generator
	logger *slog.Logger
}

// NewComposer creates a Composer.
func NewComposer(gen llm.Generator, logger *slog.Logger) (*Composer, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{gen: gen, logger: logger}, nil
}

// Compose answers question from the top topN passages. Generation
// failures degrade to the top passage's stored answer with a citation,
// never to an empty or unattributed reply.
func (c *Composer) Compose(ctx context.Context, question string, passages []faq.Passage, topN int) string {
	if len(passages) == 0 {
		return NoConfidenceReply
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	if topN > len(passages) {
		topN = len(passages)
	}
	top := passages[:topN]

	var ctxBlock strings.Builder
	for i, p := range top {
		if i > 0 {
			ctxBlock.WriteString("\n\n")
		}
		fmt.Fprintf(&ctxBlock, "[FAQ-%d] Q: %s\nA: %s", p.ID, p.Question, p.Answer)
	}

	out, err := c.gen.Generate(ctx, llm.Request{
		System:    answerSystemPrompt,
		Prompt:    fmt.Sprintf("User question:\n%s\n\nContext FAQs:\n%s", question, ctxBlock.String()),
		MaxTokens: 500,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		c.logger.Warn("answer generation failed, using top passage", "error", err)
		return fmt.Sprintf("%s [FAQ-%d]", passages[0].Answer, passages[0].ID)
	}
	return strings.TrimSpace(out)
}

// Clarify asks one short follow-up question when confidence is low.
func (c *Composer) Clarify(ctx context.Context, question string) string {
	out, err := c.gen.Generate(ctx, llm.Request{
		System:    clarifySystemPrompt,
		Prompt:    fmt.Sprintf("User said: %q\nWhat is the single most useful follow-up question?", question),
		MaxTokens: 60,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		c.logger.Warn("clarification generation failed, using fallback", "error", err)
		return clarifyFallback
	}
	return strings.Trim(strings.TrimSpace(out), `"“”`)
}
