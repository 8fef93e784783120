package daubot

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
)

const (
	Name    = "DAU AI Agentic Chatbot"
	Website = "https://www.dau.ac.in"
)

// Version is overridden at build time with -ldflags "-X ...Version=v1.2.3".
var Version = "dev"

var asciiLogo = `
    ____  ___   __  __    __          __ 
   / __ \/   | / / / /   / /_  ____  / /_
  / / / / /| |/ / / /   / __ \/ __ \/ __/
 / /_/ / ___ / /_/ /   / /_/ / /_/ / /_  
/_____/_/  |_\____/   /_.___/\____/\__/  
`

var (
	logoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true).Width(12)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	linkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// buildVersion prefers the module version stamped by `go install`.
func buildVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func printVersion() {
	path, err := config.GetConfigPath()
	if err != nil {
		renderVersion(os.Stdout, nil, "", err)
		return
	}
	cfg, err := config.LoadAppConfigFrom(path)
	renderVersion(os.Stdout, cfg, path, err)
}

// renderVersion writes the banner and the settings the server would start
// with. A config that failed to load is reported instead of the settings.
func renderVersion(w io.Writer, cfg *config.AppConfig, path string, cfgErr error) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), valueStyle.Render(value))
	}

	fmt.Fprintln(w, logoStyle.Render(asciiLogo))
	fmt.Fprintln(w, labelStyle.UnsetWidth().Render(Name))
	row("Version:", buildVersion())
	row("Go:", runtime.Version())
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Website:"), linkStyle.Render(Website))

	fmt.Fprintln(w, sectionStyle.Render("Configuration"))
	if cfgErr != nil {
		fmt.Fprintln(w, warnStyle.Render("config not loaded: "+cfgErr.Error()))
		return
	}
	if _, err := os.Stat(path); err != nil {
		path += " (not found, using defaults)"
	}
	row("File:", path)
	row("Backend:", cfg.General.Backend)
	row("Model:", cfg.Agent.Model)
	row("Embeddings:", cfg.Agent.EmbeddingModel)
	row("Port:", strconv.Itoa(cfg.General.Port))
}
