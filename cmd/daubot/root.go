// Package daubot implements the daubot command line.
package daubot

import (
	"errors"
	"fmt"
	"os"
)

// ErrReported marks errors already shown to the user.
var ErrReported = errors.New("error already reported")

// Execute is the main entry point for the CLI
func Execute() error {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		printUsage()
		if len(os.Args) < 2 {
			return fmt.Errorf("no command provided")
		}
		return nil
	}

	command := os.Args[1]
	switch command {
	case "serve":
		return handleServeCommand(os.Args[2:])
	case "chat":
		return handleChatCommand(os.Args[2:])
	case "ingest":
		return handleIngestCommand(os.Args[2:])
	case "config":
		return handleConfigCommand(os.Args[2:])
	case "version", "--version":
		printVersion()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage() {
	fmt.Println("usage: daubot [-h] {serve,chat,ingest,config,version} ...")
	fmt.Println("")
	fmt.Println("positional arguments:")
	fmt.Println("  {serve,chat,ingest,config,version}")
	fmt.Println("                        daubot commands")
	fmt.Println("    serve               Run the chat web UI")
	fmt.Println("    chat                Chat in the terminal")
	fmt.Println("    ingest              Load local documents into the local store")
	fmt.Println("    config              Manage configuration")
	fmt.Println("    version             Show version information")
	fmt.Println("")
	fmt.Println("options:")
	fmt.Println("  -h, --help            show this help message and exit")
}
