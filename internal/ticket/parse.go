package ticket

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var fencedJSONRe = regexp.MustCompile("(?is)```(?:json)?(.*?)```")

// parseLoose extracts a JSON object from generator output. Models wrap
// JSON in code fences or prose more often than they return it bare, so
// strip fencing if present, slice out the outermost braces, and parse
// that. Returns false when no valid object can be recovered.
func parseLoose(s string) (gjson.Result, bool) {
	if m := fencedJSONRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first >= 0 && last > first {
		s = s[first : last+1]
	}
	if !gjson.Valid(s) {
		return gjson.Result{}, false
	}
	parsed := gjson.Parse(s)
	if !parsed.IsObject() {
		return gjson.Result{}, false
	}
	return parsed, true
}
