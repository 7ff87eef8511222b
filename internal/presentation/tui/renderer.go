package tui

import (
	"github.com/charmbracelet/glamour"
)

// ContentRenderer transforms markdown before it reaches the terminal.
type ContentRenderer func(string) (string, error)

// NewRenderer returns a function that renders markdown using glamour.
// It detects a light or dark background by default; an empty style does the same.
func NewRenderer(style string) (ContentRenderer, error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(80))
	if err != nil {
		return nil, err
	}
	return r.Render, nil
}

// Plain leaves content untouched. Used when output is not a terminal.
func Plain(markdown string) (string, error) { return markdown, nil }
