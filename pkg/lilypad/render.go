package lilypad

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// labelMaxLen bounds a diff value rendered inside a flowchart node.
const labelMaxLen = 30

var (
	labelUnsafe = regexp.MustCompile(`['"|]`)
	labelSpace  = regexp.MustCompile(`\s+`)
)

// sanitizeLabel removes quotes and pipes and collapses whitespace so the
// text can sit inside a quoted Mermaid node label.
func sanitizeLabel(text string) string {
	text = labelUnsafe.ReplaceAllString(text, "")
	return strings.TrimSpace(labelSpace.ReplaceAllString(text, " "))
}

// truncate shortens s to at most maxLen runes, ending in "…" when cut.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}

// displayValue renders a value for a diff label: strings verbatim,
// everything else as JSON.
func displayValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
