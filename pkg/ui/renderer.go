package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders an assistant answer for the terminal. On any
// rendering failure the source is returned unchanged.
func RenderMarkdown(input string, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	if width <= 0 {
		width = min(terminalWidth(), 100)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return input
	}

	out, err := renderer.Render(input)
	if err != nil {
		return input
	}
	return out
}
