package ticket

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resolvd/resolvd/internal/contextpack"
	"github.com/resolvd/resolvd/internal/history"
	"github.com/resolvd/resolvd/internal/llm"
)

const synthesizeSystemPrompt = `Create an internal support ticket from the chat transcript.

Return STRICT JSON:
{
  "title": "concise issue (max 90 chars)",
  "summary": "2-5 sentences: what the user needs, key constraints, policy refs if any",
  "severity": "low|normal|high|critical",
  "environment": "web|ios|android|api|unknown",
  "steps": ["bullet 1", "bullet 2"],
  "faq_refs": [135, 209]
}

Rules:
- Ground ONLY in transcript; do not invent order IDs or dates.
- If not stated, use "unknown" or omit.
- Prefer a task-like title (e.g., "Price adjustment request within 7 days"), never "Create New Ticket".
- Extract numbers from tokens like [FAQ-123] into faq_refs (unique).
- Keep JSON under 1200 chars.`

// fallbackTailTurns is the transcript excerpt size when the generator
// cannot produce a summary.
const fallbackTailTurns = 12

// Synthesizer builds ticket drafts from conversation history.
type Synthesizer struct {
	gen    llm.Generator
	packer *contextpack.Packer
	budget int
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer. budget bounds the packed
// transcript handed to the generator.
func NewSynthesizer(gen llm.Generator, packer *contextpack.Packer, budget int, logger *slog.Logger) (*Synthesizer, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if packer == nil {
		return nil, fmt.Errorf("packer is required")
	}
	if budget <= 0 {
		return nil, fmt.Errorf("budget must be positive, got %d", budget)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{gen: gen, packer: packer, budget: budget, logger: logger}, nil
}

// Synthesize turns a conversation into a ticket Draft. It never fails:
// generator errors and unusable output degrade per field to the
// deterministic heuristics, and citation markers found in the
// transcript are always part of the final reference set.
func (s *Synthesizer) Synthesize(ctx context.Context, msgs []history.Message) Draft {
	cleaned := stripTicketIntent(msgs)

	draft := Draft{
		Title:       heuristicTitle(cleaned),
		Severity:    "normal",
		Environment: heuristicEnvironment(cleaned),
		FAQRefs:     extractRefs(cleaned),
	}

	packed := s.packer.Pack(ctx, cleaned, s.budget)
	out, err := s.gen.Generate(ctx, llm.Request{
		System:    synthesizeSystemPrompt,
		Prompt:    "Transcript:\n" + packed,
		MaxTokens: 700,
	})
	if err != nil {
		s.logger.Warn("ticket generation failed, using heuristic draft", "error", err)
		return s.heuristicDraft(draft, cleaned)
	}

	obj, ok := parseLoose(out)
	if !ok {
		s.logger.Warn("ticket generation returned unparseable output, using heuristic draft")
		return s.heuristicDraft(draft, cleaned)
	}

	body := strings.TrimSpace(obj.Get("summary").String())

	if title := strings.TrimSpace(obj.Get("title").String()); title != "" {
		draft.Title = truncateTitle(title)
	}
	if sev := strings.TrimSpace(obj.Get("severity").String()); sev != "" {
		if _, ok := validSeverities[sev]; ok {
			draft.Severity = sev
		} else {
			s.logger.Debug("discarding invalid severity", "value", sev)
		}
	}
	if env := strings.TrimSpace(obj.Get("environment").String()); env != "" {
		if _, ok := validEnvironments[env]; ok {
			draft.Environment = env
		} else {
			s.logger.Debug("discarding invalid environment", "value", env)
		}
	}
	if steps := obj.Get("steps"); steps.IsArray() {
		for _, step := range steps.Array() {
			if len(draft.Steps) >= MaxSteps {
				break
			}
			if v := strings.TrimSpace(step.String()); v != "" {
				draft.Steps = append(draft.Steps, v)
			}
		}
	}

	// Generator refs extend, never replace, the extracted set.
	seen := make(map[int64]struct{}, len(draft.FAQRefs))
	for _, id := range draft.FAQRefs {
		seen[id] = struct{}{}
	}
	if refs := obj.Get("faq_refs"); refs.IsArray() {
		for _, ref := range refs.Array() {
			id := ref.Int()
			if id <= 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			draft.FAQRefs = append(draft.FAQRefs, id)
		}
	}

	draft.Summary = renderSummary(draft, body)
	return draft
}

// heuristicDraft assembles the generator-free draft: heuristic fields
// plus a capped verbatim transcript excerpt as the body.
func (s *Synthesizer) heuristicDraft(draft Draft, cleaned []history.Message) Draft {
	draft.Steps = []string{"Review conversation log", "Respond according to policy"}
	body := fmt.Sprintf("The user needs help related to: %s.\n\nRecent conversation:\n%s",
		draft.Title, renderTail(cleaned, fallbackTailTurns))
	draft.Summary = renderSummary(draft, body)
	return draft
}

// stripTicketIntent removes control utterances so the generator sees
// only the substantive problem description.
func stripTicketIntent(msgs []history.Message) []history.Message {
	cleaned := make([]history.Message, 0, len(msgs))
	for _, m := range msgs {
		if history.IsTicketIntent(m.Content) {
			continue
		}
		cleaned = append(cleaned, m)
	}
	return cleaned
}
