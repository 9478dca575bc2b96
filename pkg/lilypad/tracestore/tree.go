package tracestore

import (
	"errors"

	"github.com/0xA-10/lilypad/pkg/lilypad"
)

// Tree rebuilds the alignment tree of a stored run, so it can be rendered
// with Mermaid like a live one.
func Tree(rec lilypad.TraceRecord) (*lilypad.AlignmentTree, error) {
	t := lilypad.NewAlignmentTree()
	for _, n := range rec.Nodes {
		id := t.Add(n.Label, n.Before)
		if n.Err != "" {
			if err := t.SetError(id, errors.New(n.Err)); err != nil {
				return nil, err
			}
			continue
		}
		if n.After != nil {
			if err := t.SetAfter(id, n.After); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}
