package tracestore

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/0xA-10/lilypad/pkg/lilypad"
)

// Markdown renders a stored run as a markdown report: a summary, a step
// table listing the keys each step changed, and the Mermaid trace.
func Markdown(rec lilypad.TraceRecord) (string, error) {
	tree, err := Tree(rec)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	title := rec.Pipeline
	if title == "" {
		title = "pipeline"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- **Run:** `%s`\n", rec.RunID)
	fmt.Fprintf(&b, "- **Pattern:** `%s`\n", rec.Pattern)
	if !rec.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- **Started:** %s\n", rec.StartedAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- **Duration:** %s\n", rec.Duration.Round(time.Millisecond))
	if rec.Error != "" {
		fmt.Fprintf(&b, "- **Error:** %s\n", cell(rec.Error))
	}

	b.WriteString("\n## Steps\n\n| # | Symbol | Changed keys | Status |\n|---|---|---|---|\n")
	for i, n := range rec.Nodes {
		status := "ok"
		changed := "-"
		switch {
		case n.Err != "":
			status = "failed: " + cell(n.Err)
		case n.After != nil:
			if keys := changedKeys(n); len(keys) > 0 {
				changed = strings.Join(keys, ", ")
			}
		}
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s |\n", i, n.Label, changed, status)
	}

	b.WriteString("\n## Trace\n\n")
	b.WriteString(tree.Mermaid())
	return b.String(), nil
}

// changedKeys lists the keys a step added, changed or removed.
func changedKeys(n lilypad.AlignmentNode) []string {
	var keys []string
	for k := range lilypad.Diff(n.Before, n.After) {
		keys = append(keys, k)
	}
	for k := range n.Before {
		if _, ok := n.After[k]; !ok {
			keys = append(keys, "-"+k)
		}
	}
	slices.Sort(keys)
	return keys
}

// cell flattens text for a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}
