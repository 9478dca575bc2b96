package lilypad

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Transformation records one step of a sequential Runner.
type Transformation struct {
	Step   string `json:"step"`
	Input  Ctx    `json:"input"`
	Output Ctx    `json:"output"`
}

// Diff returns the fields the step added or changed.
func (t Transformation) Diff() Ctx {
	return Diff(t.Input, t.Output)
}

// Summary renders the diff as comma-joined key:value pairs in key order,
// with values truncated for display, or "no change".
func (t Transformation) Summary() string {
	diffs := t.Diff()
	if len(diffs) == 0 {
		return "no change"
	}
	keys := make([]string, 0, len(diffs))
	for k := range diffs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + truncate(displayValue(diffs[k]), labelMaxLen)
	}
	return strings.Join(parts, ", ")
}

// TransformationLog is the ordered record kept by a Runner.
type TransformationLog struct {
	mu      sync.RWMutex
	entries []Transformation
}

// Append records a step.
func (l *TransformationLog) Append(t Transformation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, t)
}

// Entries returns a copy of the recorded steps.
func (l *TransformationLog) Entries() []Transformation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Transformation(nil), l.entries...)
}

// Len returns the number of recorded steps.
func (l *TransformationLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Mermaid renders the log as a left-to-right flowchart. Each node shows
// the step name and the fields it changed.
func (l *TransformationLog) Mermaid() string {
	return TransformationsMermaid(l.Entries())
}

// TransformationsMermaid renders any sequence of transformations as a
// left-to-right flowchart.
func TransformationsMermaid(ts []Transformation) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")
	for i, t := range ts {
		id := fmt.Sprintf("step%d", i)
		fmt.Fprintf(&sb, "  %s[\"%s\\n%s\"]\n", id, sanitizeLabel(t.Step), sanitizeLabel(t.Summary()))
		if i > 0 {
			fmt.Fprintf(&sb, "  step%d --> %s\n", i-1, id)
		}
	}
	return sb.String()
}
