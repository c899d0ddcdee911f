// Package ticket synthesizes structured support tickets from
// conversation history, merging generator output with deterministic
// heuristics so a well-formed draft is always produced.
package ticket

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTitleLen caps the draft title in bytes.
const MaxTitleLen = 90

// MaxSteps caps the steps list.
const MaxSteps = 10

// Severity values accepted in a draft.
var validSeverities = map[string]struct{}{
	"low": {}, "normal": {}, "high": {}, "critical": {},
}

// Environment values accepted in a draft.
var validEnvironments = map[string]struct{}{
	"web": {}, "ios": {}, "android": {}, "api": {}, "unknown": {},
}

// truncateTitle caps s at MaxTitleLen bytes, backing up to a rune
// boundary so the result stays valid UTF-8.
func truncateTitle(s string) string {
	if len(s) <= MaxTitleLen {
		return s
	}
	cut := MaxTitleLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Draft is a ticket ready for persistence. Summary holds the rendered
// human-readable block, not raw generator output.
type Draft struct {
	Title       string
	Summary     string
	Severity    string
	Environment string
	Steps       []string
	FAQRefs     []int64
}

// renderSummary builds the human-readable summary block that gets
// persisted: issue line, severity, environment, free-text body, steps,
// and referenced FAQ ids.
func renderSummary(d Draft, body string) string {
	var lines []string
	lines = append(lines, "Issue: "+d.Title)
	lines = append(lines, "Severity: "+d.Severity)
	lines = append(lines, "Environment: "+d.Environment)
	if body = strings.TrimSpace(body); body != "" {
		lines = append(lines, "", body)
	}
	if len(d.Steps) > 0 {
		lines = append(lines, "", "Steps / Context:")
		for _, s := range d.Steps {
			lines = append(lines, "- "+s)
		}
	}
	if len(d.FAQRefs) > 0 {
		refs := make([]string, len(d.FAQRefs))
		for i, id := range d.FAQRefs {
			refs[i] = fmt.Sprintf("#%d", id)
		}
		lines = append(lines, "", "FAQ refs: "+strings.Join(refs, ", "))
	}
	return strings.Join(lines, "\n")
}
