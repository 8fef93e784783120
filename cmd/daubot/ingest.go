package daubot

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/term"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/backend"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/config"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/launcher"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/ui"
)

func handleIngestCommand(args []string) error {
	ingestCmd := flag.NewFlagSet("ingest", flag.ContinueOnError)
	ingestCmd.Usage = printIngestUsage
	dir := ingestCmd.String("dir", "", "Directory of .md, .txt or .html documents")
	watch := ingestCmd.Bool("watch", false, "Keep running and re-ingest files as they change")
	chunkSize := ingestCmd.Int("chunk-size", backend.DefaultChunkSize, "Maximum characters per chunk")
	var common commonFlags
	common.register(ingestCmd)

	if err := ingestCmd.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if *dir == "" {
		printIngestUsage()
		return fmt.Errorf("--dir is required")
	}

	// ingestion always targets the local store, so only the OpenAI key is needed
	common.backend = config.BackendLocal
	env, err := prepare(common, config.RequireOpenAIKey)
	if err != nil {
		return err
	}
	defer env.closer.Close()

	store, err := launcher.OpenLocalStore(env.cfg, openai.NewClient(env.creds.OpenAIAPIKey))
	if err != nil {
		return err
	}

	ingester := &backend.Ingester{Store: store, ChunkSize: *chunkSize, Logger: env.logger}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := backend.CollectFiles(*dir)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", *dir, err)
	}

	n, err := ingestWithProgress(ctx, ingester, *dir, files)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	fmt.Printf("✓ Ingested %d chunks from %d files (%d chunks in store)\n", n, len(files), store.Count())

	if !*watch {
		return nil
	}
	fmt.Printf("Watching %s for changes. Press Ctrl+C to stop.\n", *dir)
	return ingester.Watch(ctx, *dir)
}

// ingestWithProgress shows a progress bar on a terminal and plain log lines
// otherwise.
func ingestWithProgress(ctx context.Context, ingester *backend.Ingester, dir string, files []string) (int, error) {
	if !term.IsTerminal(int(os.Stdout.Fd())) || len(files) == 0 {
		return ingester.IngestFiles(ctx, dir, files)
	}

	program := ui.NewIngestProgram(len(files), dir, os.Stdout)
	ingester.Progress = func(page string, chunks int) {
		program.Send(ui.FileIngestedMsg{Page: page, Chunks: chunks})
	}
	defer func() { ingester.Progress = nil }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		program.Run()
	}()

	n, err := ingester.IngestFiles(ctx, dir, files)
	if err != nil {
		program.Quit()
	}
	<-done
	return n, err
}

func printIngestUsage() {
	fmt.Println("usage: daubot ingest [-h] --dir DIR [--watch] [--chunk-size N] [--config PATH] [--secrets PATH]")
	fmt.Println("")
	fmt.Println("Load local documents into the local vector store")
	fmt.Println("")
	fmt.Println("options:")
	fmt.Println("  -h, --help            show this help message and exit")
	fmt.Println("  --dir DIR             Directory of .md, .txt or .html documents")
	fmt.Println("  --watch               Keep running and re-ingest files as they change")
	fmt.Println("  --chunk-size N        Maximum characters per chunk (default: 5000)")
}
