package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
)

// PromptInitialConfig asks for the settings most installs change and writes
// the answers into cfg.
func PromptInitialConfig(cfg *config.AppConfig) error {
	backend := cfg.General.Backend
	port := strconv.Itoa(cfg.General.Port)
	model := cfg.Agent.Model

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Retrieval backend").
				Options(
					huh.NewOption("Supabase (hosted site_pages table)", config.BackendSupabase),
					huh.NewOption("Local store (daubot ingest)", config.BackendLocal),
				).
				Value(&backend),
			huh.NewInput().
				Title("Chat model").
				Value(&model),
			huh.NewInput().
				Title("Port").
				Validate(validatePort).
				Value(&port),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.General.Backend = backend
	cfg.Agent.Model = model
	cfg.General.Port, _ = strconv.Atoi(port)
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}
