// Package history models conversation transcripts and merges the
// persisted record with client-cached messages collected before a
// conversation was attached to an account.
package history

import (
	"regexp"
	"strings"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxTurns caps merged history length.
const DefaultMaxTurns = 60

// Message is one conversation turn.
type Message struct {
	Role    string
	Content string
}

// ticketIntentRe matches control utterances asking for a ticket. These
// carry no problem description and are filtered out of summarization
// and ticket-synthesis input.
var ticketIntentRe = regexp.MustCompile(`(?i)open.*ticket|create.*ticket|raise.*ticket|support ticket|file a ticket|escalate`)

// IsTicketIntent reports whether content is a ticket-intent command.
func IsTicketIntent(content string) bool {
	return ticketIntentRe.MatchString(content)
}

// Merge combines primary (persisted) and secondary (client-cached)
// histories. Concatenates primary then secondary, deduplicates on
// (role, trimmed content) keeping the first occurrence in order, drops
// ticket-intent commands, and keeps only the last maxTurns messages.
// Inputs are never mutated.
func Merge(primary, secondary []Message, maxTurns int) []Message {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	merged := make([]Message, 0, len(primary)+len(secondary))
	seen := make(map[[2]string]struct{}, len(primary)+len(secondary))

	for _, m := range append(append([]Message{}, primary...), secondary...) {
		if IsTicketIntent(m.Content) {
			continue
		}
		key := [2]string{m.Role, strings.TrimSpace(m.Content)}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, m)
	}

	if len(merged) > maxTurns {
		merged = merged[len(merged)-maxTurns:]
	}
	return merged
}
