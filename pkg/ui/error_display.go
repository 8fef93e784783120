// Package ui renders terminal output for the daubot CLI.
package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
)

var (
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("226")
	colorWhite  = lipgloss.Color("252")
	colorGrey   = lipgloss.Color("240")

	headerStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	indentStyle = lipgloss.NewStyle().
			PaddingLeft(3)

	reasonTextStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	suggestionTitleStyle = lipgloss.NewStyle().
				Foreground(colorYellow).
				Bold(true)

	suggestionTextStyle = lipgloss.NewStyle().
				Foreground(colorYellow)

	rawErrorTitleStyle = lipgloss.NewStyle().
				Foreground(colorGrey).
				Bold(true)

	rawErrorTextStyle = lipgloss.NewStyle().
				Foreground(colorGrey)
)

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// RenderErrorBox formats an error for the terminal, wrapped to its width.
func RenderErrorBox(title, reason, suggestion, originalError string) string {
	return renderErrorBox(terminalWidth(), title, reason, suggestion, originalError)
}

func renderErrorBox(width int, title, reason, suggestion, originalError string) string {
	// indent(3) plus a margin of 2
	contentWidth := max(width-5, 20)

	header := indentStyle.Render(headerStyle.Render(fmt.Sprintf("✕ %s", title)))

	var bodyBlocks []string
	addSpacer := func() {
		if len(bodyBlocks) > 0 {
			bodyBlocks = append(bodyBlocks, "")
		}
	}

	if reason != "" {
		bodyBlocks = append(bodyBlocks, reasonTextStyle.Width(contentWidth).Render(reason))
	}

	if suggestion != "" {
		addSpacer()
		bodyBlocks = append(bodyBlocks,
			suggestionTitleStyle.Render("Suggestion:"),
			suggestionTextStyle.Width(contentWidth).Render(suggestion),
		)
	}

	if originalError != "" {
		addSpacer()
		bodyBlocks = append(bodyBlocks,
			rawErrorTitleStyle.Render("Raw Error:"),
			rawErrorTextStyle.Width(contentWidth).Render(strings.TrimSpace(originalError)),
		)
	}

	body := indentStyle.Render(lipgloss.JoinVertical(lipgloss.Left, bodyBlocks...))
	return fmt.Sprintf("\n%s\n%s\n", header, body)
}

// RenderStartupError explains why the server could not start. Missing
// secrets get a suggestion naming the keys and where they may be set.
func RenderStartupError(err error) string {
	var missing *config.MissingSecretError
	if errors.As(err, &missing) {
		return RenderErrorBox(
			"Missing Credentials",
			missing.Error(),
			fmt.Sprintf("Set %s in secrets.toml (or the file named by $%s) or export them as environment variables.",
				strings.Join(missing.Keys, ", "), config.SecretsFileEnv),
			"",
		)
	}
	return RenderErrorBox("Startup Failed", "The chat server could not be started.", "", err.Error())
}
