package daubot

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/launcher"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/ui"
)

func handleServeCommand(args []string) error {
	serveCmd := flag.NewFlagSet("serve", flag.ContinueOnError)
	serveCmd.Usage = printServeUsage
	port := serveCmd.Int("port", 0, "Port to run the chat server on")
	var common commonFlags
	common.register(serveCmd)

	if err := serveCmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	env, err := prepare(common, config.RequireCredentials)
	if err != nil {
		return err
	}
	defer env.closer.Close()
	if *port != 0 {
		env.cfg.General.Port = *port
	}

	rt, err := launcher.BuildRuntime(env.cfg, env.creds, env.logger)
	if err != nil {
		fmt.Fprint(os.Stderr, ui.RenderStartupError(err))
		return fmt.Errorf("%w: %w", ErrReported, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return launcher.RunServer(ctx, env.cfg, rt, env.logger)
}

func printServeUsage() {
	fmt.Println("usage: daubot serve [-h] [--port PORT] [--config PATH] [--secrets PATH] [--backend NAME]")
	fmt.Println("")
	fmt.Println("Run the DAU chat web UI")
	fmt.Println("")
	fmt.Println("options:")
	fmt.Println("  -h, --help            show this help message and exit")
	fmt.Println("  --port PORT           Port to run the chat server on (default: 8501)")
	fmt.Println("  --config PATH         Path to config.yaml")
	fmt.Println("  --secrets PATH        Path to secrets.toml")
	fmt.Println("  --backend NAME        Retrieval backend: supabase or local")
}
