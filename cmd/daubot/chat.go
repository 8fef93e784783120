package daubot

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/launcher"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/session"
)

func handleChatCommand(args []string) error {
	chatCmd := flag.NewFlagSet("chat", flag.ContinueOnError)
	noColor := chatCmd.Bool("no-color", false, "Disable ANSI colors")
	markdown := chatCmd.Bool("markdown", false, "Print each answer rendered as markdown once it completes")
	var common commonFlags
	common.register(chatCmd)

	if err := chatCmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}

	env, err := prepare(common, config.RequireCredentials)
	if err != nil {
		return err
	}
	defer env.closer.Close()

	rt, err := launcher.BuildRuntime(env.cfg, env.creds, env.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	return launcher.RunConsole(ctx, &launcher.ConsoleConfig{
		Turns:    session.NewTurnHandler(rt.Agent, rt.Deps, env.cfg.General.TurnTimeout, env.logger),
		In:       os.Stdin,
		Out:      os.Stdout,
		Title:    env.cfg.UI.Title,
		NoANSI:   *noColor || !tty,
		Spinner:  tty && !*noColor,
		Markdown: *markdown,
	})
}
