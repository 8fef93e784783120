package daubot

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/ui"
)

func handleConfigCommand(args []string) error {
	if len(args) < 1 || args[0] == "-h" || args[0] == "--help" {
		printConfigUsage()
		return nil
	}

	switch args[0] {
	case "init":
		return handleConfigInit()
	case "edit":
		return handleConfigEdit()
	case "show":
		return handleConfigShow()
	case "directory":
		return handleConfigDirectory()
	default:
		return fmt.Errorf("unknown config subcommand: %s", args[0])
	}
}

func printConfigUsage() {
	fmt.Println("usage: daubot config [-h] {init,edit,show,directory} ...")
	fmt.Println("")
	fmt.Println("positional arguments:")
	fmt.Println("  {init,edit,show,directory}")
	fmt.Println("                        Configuration management commands")
	fmt.Println("    init                Write config.yaml with the default settings")
	fmt.Println("    edit                Open config.yaml in default editor")
	fmt.Println("    show                Print config.yaml contents")
	fmt.Println("    directory           Print the configuration directory path")
	fmt.Println("")
	fmt.Println("options:")
	fmt.Println("  -h, --help            show this help message and exit")
}

func handleConfigInit() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	cfg := config.Default()
	if term.IsTerminal(int(os.Stdin.Fd())) {
		if err := ui.PromptInitialConfig(cfg); err != nil {
			return err
		}
	}
	if err := config.SaveAppConfig(cfg); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Printf("✓ Wrote %s\n", path)
	return nil
}

func handleConfigEdit() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.SaveAppConfig(config.Default()); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}
	}

	return openInEditor(path)
}

func handleConfigShow() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Config file does not exist. Run 'daubot config init' to create one.")
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func handleConfigDirectory() error {
	dir, err := config.GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	fmt.Println(dir)
	return nil
}
