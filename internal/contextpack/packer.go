// Package contextpack bounds an arbitrarily long conversation to a
// fixed prompt budget. Older turns are compressed into a bullet digest,
// recent turns are kept verbatim, and the result always fits the budget
// apart from one documented edge case.
package contextpack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/resolvd/resolvd/internal/history"
	"github.com/resolvd/resolvd/internal/llm"
)

const (
	// DigestMaxTokens bounds the generated summary of the older turns.
	DigestMaxTokens = 300

	// summaryHeader marks digested content in the packed output.
	summaryHeader = "Conversation summary:"

	digestSystemPrompt = "You condense customer support conversations. Output only bullet points."

	digestInstruction = `Summarize the conversation below into 6 to 10 concise bullet points.
Preserve exact identifiers, error codes, and numeric references as written.
Do not introduce any fact that is not in the conversation.`
)

// Packer builds prompt-ready transcripts within a token budget.
type Packer struct {
	gen    llm.Generator
	logger *slog.Logger
}

// NewPacker creates a Packer using gen to digest older turns.
func NewPacker(gen llm.Generator, logger *slog.Logger) (*Packer, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Packer{gen: gen, logger: logger}, nil
}

// estimateTokens is a cheap conservative proxy: characters over four,
// rounded up. It only needs to be stable and monotonic in length.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// truncateToBudget cuts s so its estimated cost is at most budget
// tokens, never splitting a rune.
func truncateToBudget(s string, budget int) string {
	max := budget * 4
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// render formats messages as role-labelled lines.
func render(msgs []history.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// Pack returns a single prompt-ready text block for msgs whose
// estimated cost fits budget. If the full transcript fits it is
// returned verbatim; otherwise the older ~70% of turns is digested and
// the rest kept verbatim, truncating the retained suffix as needed.
// Pack never fails: when digestion is unavailable it falls back to hard
// truncation. The one case the budget cannot be honored is a single
// most-recent message that alone exceeds it; that message is returned
// truncated to the budget.
func (p *Packer) Pack(ctx context.Context, msgs []history.Message, budget int) string {
	if len(msgs) == 0 || budget <= 0 {
		return ""
	}

	full := render(msgs)
	if estimateTokens(full) <= budget {
		return full
	}

	last := render(msgs[len(msgs)-1:])
	if estimateTokens(last) > budget {
		p.logger.Warn("most recent message alone exceeds budget, truncating",
			"estimated_tokens", estimateTokens(last), "budget", budget)
		return truncateToBudget(last, budget)
	}

	split := len(msgs) * 70 / 100
	head, tail := msgs[:split], msgs[split:]

	digest := p.digest(ctx, head)
	fits := func(k int) bool {
		return estimateTokens(join(digest, render(tail[len(tail)-k:]))) <= budget
	}

	if fits(len(tail)) {
		return join(digest, render(tail))
	}

	if !fits(0) {
		// Even the digest alone is over budget; drop it and keep the
		// largest verbatim suffix of the transcript instead.
		digest = ""
		fits = func(k int) bool {
			return estimateTokens(render(msgs[len(msgs)-k:])) <= budget
		}
		tail = msgs
		if !fits(1) {
			return truncateToBudget(last, budget)
		}
	}

	// fits is monotonically non-increasing in k: fits(lo) holds,
	// fits(hi) does not. Find the largest k that fits.
	lo, hi := 0, len(tail)
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}

	p.logger.Debug("packed with truncated tail",
		"kept_messages", lo, "dropped_messages", len(tail)-lo, "budget", budget)
	if digest == "" {
		return render(tail[len(tail)-lo:])
	}
	return join(digest, render(tail[len(tail)-lo:]))
}

// digest compresses head into a summary block. On generator failure it
// degrades to a hard truncation of the most recent head content so that
// packing never fails outright.
func (p *Packer) digest(ctx context.Context, head []history.Message) string {
	transcript := render(head)

	out, err := p.gen.Generate(ctx, llm.Request{
		System:    digestSystemPrompt,
		Prompt:    digestInstruction + "\n\n" + transcript,
		MaxTokens: DigestMaxTokens,
	})
	if err != nil {
		p.logger.Warn("digest generation failed, falling back to truncation", "error", err)
		max := DigestMaxTokens * 4
		if len(transcript) > max {
			start := len(transcript) - max
			for start < len(transcript) && !utf8.RuneStart(transcript[start]) {
				start++
			}
			transcript = transcript[start:]
		}
		return summaryHeader + "\n" + transcript
	}
	return summaryHeader + "\n" + strings.TrimSpace(out)
}

func join(digest, tail string) string {
	switch {
	case digest == "":
		return tail
	case tail == "":
		return digest
	default:
		return digest + "\n\n" + tail
	}
}
