package main

import (
	"github.com/charmbracelet/glamour"
)

// renderMarkdown renders md for the terminal, or returns it untouched
// when raw is set.
func renderMarkdown(md string, raw bool) (string, error) {
	if raw {
		return md, nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
