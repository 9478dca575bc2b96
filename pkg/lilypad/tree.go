package lilypad

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// AlignmentNode records one executed step.
type AlignmentNode struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Before Ctx    `json:"before"`
	// After is nil while the step runs and stays nil if it fails.
	After Ctx `json:"after"`
	// Err holds the failure message of a step that returned an error.
	Err string `json:"error,omitempty"`
}

// Edge links a node to the node executed after it.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// AlignmentTree is the append-only record of per-step Ctx transitions.
// Despite the name, its edges always form a single linear chain.
//
// AlignmentTree is safe for concurrent use, although a single pipeline
// run only ever appends from one goroutine.
type AlignmentTree struct {
	mu    sync.RWMutex
	nodes []AlignmentNode
	index map[string]int
	edges []Edge
}

// NewAlignmentTree creates an empty tree.
func NewAlignmentTree() *AlignmentTree {
	return &AlignmentTree{index: make(map[string]int)}
}

// Add appends a node labelled label with the given before-snapshot, links
// it after the previous node and returns its identifier (n0, n1, ...).
// The caller hands over ownership of before.
func (t *AlignmentTree) Add(label string, before Ctx) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.index == nil {
		t.index = make(map[string]int)
	}
	id := fmt.Sprintf("n%d", len(t.nodes))
	t.nodes = append(t.nodes, AlignmentNode{ID: id, Label: label, Before: before})
	t.index[id] = len(t.nodes) - 1
	if len(t.nodes) > 1 {
		t.edges = append(t.edges, Edge{From: t.nodes[len(t.nodes)-2].ID, To: id})
	}
	return id
}

// SetAfter records the after-snapshot of an existing node.
// Returns ErrNodeNotFound for an unknown id.
func (t *AlignmentTree) SetAfter(id string, after Ctx) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	t.nodes[i].After = after
	return nil
}

// SetError records the failure of an existing node.
// Returns ErrNodeNotFound for an unknown id.
func (t *AlignmentTree) SetError(id string, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if err != nil {
		t.nodes[i].Err = err.Error()
	}
	return nil
}

// Len returns the number of nodes.
func (t *AlignmentTree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Nodes returns a copy of the node list in execution order.
// Snapshots are shared with the tree and must not be mutated.
func (t *AlignmentTree) Nodes() []AlignmentNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]AlignmentNode(nil), t.nodes...)
}

// Edges returns a copy of the edge list in execution order.
func (t *AlignmentTree) Edges() []Edge {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Edge(nil), t.edges...)
}

// Labels returns the node labels in execution order.
func (t *AlignmentTree) Labels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.nodes))
	for i, n := range t.nodes {
		out[i] = n.Label
	}
	return out
}

// Timeline returns the ordered node list for programmatic consumption.
func (t *AlignmentTree) Timeline() []AlignmentNode {
	return t.Nodes()
}

// MarshalJSON encodes the timeline.
func (t *AlignmentTree) MarshalJSON() ([]byte, error) {
	nodes := t.Nodes()
	if nodes == nil {
		nodes = []AlignmentNode{}
	}
	return json.Marshal(nodes)
}

// Mermaid renders the trace as a fenced Mermaid graph followed by one
// collapsible block per node holding the JSON of its before/after state.
// Each graph node links to the anchor of its block.
func (t *AlignmentTree) Mermaid() string {
	nodes := t.Nodes()
	edges := t.Edges()

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph TD\n")
	for _, n := range nodes {
		fmt.Fprintf(&sb, "  %s(\"%s\")\n", n.ID, sanitizeLabel(n.Label))
	}
	for _, e := range edges {
		fmt.Fprintf(&sb, "  %s --> %s\n", e.From, e.To)
	}
	for _, n := range nodes {
		fmt.Fprintf(&sb, "  click %s href \"#state-%s\"\n", n.ID, n.ID)
	}
	sb.WriteString("```")

	for _, n := range nodes {
		state, err := json.MarshalIndent(struct {
			Before Ctx    `json:"before"`
			After  Ctx    `json:"after"`
			Err    string `json:"error,omitempty"`
		}{n.Before, n.After, n.Err}, "", "  ")
		if err != nil {
			state = []byte(fmt.Sprintf("%q", err.Error()))
		}
		fmt.Fprintf(&sb, "\n\n<a id=\"state-%s\"></a>\n\n", n.ID)
		fmt.Fprintf(&sb, "<details><summary>%s – state snapshot</summary>\n\n", sanitizeLabel(n.Label))
		sb.WriteString("```json\n")
		sb.Write(state)
		sb.WriteString("\n```\n</details>\n")
	}
	return sb.String()
}
