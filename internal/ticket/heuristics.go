package ticket

import (
	"regexp"
	"strings"

	"github.com/resolvd/resolvd/internal/history"
)

var faqRefRe = regexp.MustCompile(`\[FAQ-(\d+)\]`)

// extractRefs scans all message content for explicit [FAQ-<id>]
// citation markers. Runs regardless of generator availability; its
// result is always unioned into the final draft.
func extractRefs(msgs []history.Message) []int64 {
	var refs []int64
	seen := make(map[int64]struct{})
	for _, m := range msgs {
		for _, match := range faqRefRe.FindAllStringSubmatch(m.Content, -1) {
			id := parseID(match[1])
			if id <= 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			refs = append(refs, id)
		}
	}
	return refs
}

func parseID(s string) int64 {
	var id int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		id = id*10 + int64(c-'0')
		if id > 1<<53 {
			return 0
		}
	}
	return id
}

// titleRules map keyword cues to task-like titles, most specific first.
var titleRules = []struct {
	cue   string
	title string
}{
	{"price adjustment", "Price adjustment request within 7-day window"},
	{"password", "Password reset/login issue"},
	{"refund", "Refund request"},
	{"2fa", "2FA setup/verification issue"},
	{"two-factor", "2FA setup/verification issue"},
	{"billing", "Billing/invoice question"},
	{"invoice", "Billing/invoice question"},
}

// heuristicTitle derives a deterministic title from recent transcript
// keywords, used when the generator is unavailable or returns an
// unusable title.
func heuristicTitle(msgs []history.Message) string {
	text := strings.ToLower(renderTail(msgs, 20))
	for _, r := range titleRules {
		if strings.Contains(text, r.cue) {
			return r.title
		}
	}
	return "Support request"
}

// environmentRules map keyword cues to environments, most specific first.
var environmentRules = []struct {
	cue string
	env string
}{
	{"iphone", "ios"},
	{"ipad", "ios"},
	{" ios", "ios"},
	{"android", "android"},
	{"api key", "api"},
	{"endpoint", "api"},
	{"webhook", "api"},
	{"curl", "api"},
	{"browser", "web"},
	{"chrome", "web"},
	{"safari", "web"},
	{"firefox", "web"},
	{"website", "web"},
}

// heuristicEnvironment infers the environment from keyword cues across
// the whole transcript, independent of any generator call.
func heuristicEnvironment(msgs []history.Message) string {
	text := " " + strings.ToLower(renderTail(msgs, len(msgs)))
	for _, r := range environmentRules {
		if strings.Contains(text, r.cue) {
			return r.env
		}
	}
	return "unknown"
}

// renderTail formats the last limit messages as capitalized role lines.
func renderTail(msgs []history.Message, limit int) string {
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		role := "User"
		if m.Role == history.RoleAssistant {
			role = "Assistant"
		}
		b.WriteString(role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
