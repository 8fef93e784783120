package launcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/session"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/ui"
)

const (
	ColorReset = "\033[0m"
	ColorGreen = "\033[32m"
	ColorCyan  = "\033[36m"
	ColorGray  = "\033[90m"
	ColorRed   = "\033[31m"
)

// ConsoleConfig contains configuration for the console chat.
type ConsoleConfig struct {
	Turns  *session.TurnHandler
	In     io.Reader
	Out    io.Writer
	Title  string
	NoANSI bool
	// Spinner shows an animation until the first fragment arrives.
	Spinner bool
	// Markdown waits for the whole answer and prints it rendered instead of
	// streaming raw fragments.
	Markdown bool
}

// RunConsole chats with the agent on the terminal. "/clear" empties the
// transcript and "/exit" (or EOF) quits.
func RunConsole(ctx context.Context, cfg *ConsoleConfig) error {
	color := func(c string) string {
		if cfg.NoANSI {
			return ""
		}
		return c
	}

	sess := session.NewStore(0, nil).GetOrCreate("")
	out := cfg.Out

	fmt.Fprintf(out, "%s%s%s\n", color(ColorCyan), cfg.Title, color(ColorReset))
	fmt.Fprintf(out, "%sType /clear to start over, /exit to quit.%s\n", color(ColorGray), color(ColorReset))

	scanner := bufio.NewScanner(cfg.In)
	for {
		fmt.Fprintf(out, "\n%sYou:%s ", color(ColorCyan), color(ColorReset))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			if err := sess.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%sChat cleared.%s\n", color(ColorGray), color(ColorReset))
			continue
		}

		fmt.Fprintf(out, "\n%sAI:%s ", color(ColorGreen), color(ColorReset))
		stop := func() {}
		if cfg.Spinner {
			stop = ui.StartSpinner(out, "Thinking...")
		}
		reply, err := cfg.Turns.Run(ctx, sess, line, func(_, delta string) error {
			if cfg.Markdown {
				return nil
			}
			stop()
			_, err := io.WriteString(out, delta)
			return err
		})
		stop()
		if err == nil && cfg.Markdown {
			fmt.Fprint(out, ui.RenderMarkdown(reply.Content, 0))
		}
		fmt.Fprintln(out)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "%sERROR: %v%s\n", color(ColorRed), err, color(ColorReset))
		}
	}
}
