package backend

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// DefaultChunkSize is the maximum chunk length in bytes.
const DefaultChunkSize = 5000

// Ingester loads documentation files into a LocalStore.
type Ingester struct {
	Store     *LocalStore
	ChunkSize int
	Logger    *slog.Logger
	// Progress, when set, is called after each file IngestDir stores.
	Progress func(pageURL string, chunks int)
}

// Supported reports whether path has an extension the ingester reads.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt", ".html", ".htm":
		return true
	}
	return false
}

// CollectFiles returns the supported files below dir in walk order.
func CollectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Supported(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// IngestDir ingests every supported file below dir and returns the number of
// chunks stored.
func (in *Ingester) IngestDir(ctx context.Context, dir string) (int, error) {
	files, err := CollectFiles(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to ingest %s: %w", dir, err)
	}
	return in.IngestFiles(ctx, dir, files)
}

// IngestFiles ingests files, naming each page by its path relative to root.
func (in *Ingester) IngestFiles(ctx context.Context, root string, files []string) (int, error) {
	total := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return total, err
		}
		pageURL := filepath.ToSlash(rel)
		n, err := in.IngestFile(ctx, path, pageURL)
		if err != nil {
			return total, fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		total += n
		if in.Progress != nil {
			in.Progress(pageURL, n)
		}
	}
	return total, nil
}

// IngestFile replaces the chunks stored for pageURL with the contents of path.
func (in *Ingester) IngestFile(ctx context.Context, path, pageURL string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	text := string(data)
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".html" || ext == ".htm" {
		text, err = htmltomarkdown.ConvertString(text)
		if err != nil {
			return 0, fmt.Errorf("failed to convert %s: %w", path, err)
		}
	}

	title := titleOf(text, path)
	chunks := ChunkText(text, in.ChunkSize)

	pages := make([]Page, 0, len(chunks))
	for i, c := range chunks {
		pages = append(pages, Page{
			URL:         pageURL,
			ChunkNumber: i,
			Title:       title,
			Summary:     summaryOf(c),
			Content:     c,
		})
	}

	if err := in.Store.DeleteURL(ctx, pageURL); err != nil {
		return 0, err
	}
	if err := in.Store.AddPages(ctx, pages); err != nil {
		return 0, err
	}

	in.logger().Info("ingested page", "url", pageURL, "chunks", len(pages))
	return len(pages), nil
}

func (in *Ingester) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.Default()
	}
	return in.Logger
}

// ChunkText splits text into chunks of at most size bytes, preferring to cut
// at a code fence, then a paragraph break, then a sentence end, as long as the
// cut falls past 30% of the chunk. Cuts never split a UTF-8 sequence. A
// non-positive size selects DefaultChunkSize.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			if c := strings.TrimSpace(text[start:]); c != "" {
				chunks = append(chunks, c)
			}
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			// size is smaller than the rune at start
			_, n := utf8.DecodeRuneInString(text[start:])
			end = start + n
		}

		window := text[start:end]
		minCut := size * 3 / 10
		if i := strings.LastIndex(window, "```"); i > minCut {
			end = start + i
		} else if i := strings.LastIndex(window, "\n\n"); i > minCut {
			end = start + i
		} else if i := strings.LastIndex(window, ". "); i > minCut {
			end = start + i + 1
		}

		if c := strings.TrimSpace(text[start:end]); c != "" {
			chunks = append(chunks, c)
		}
		start = end
	}
	return chunks
}

func titleOf(text, path string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
				return t
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func summaryOf(chunk string) string {
	line, _, _ := strings.Cut(chunk, "\n")
	line = strings.TrimSpace(strings.TrimLeft(line, "# "))
	if utf8.RuneCountInString(line) > 200 {
		line = string([]rune(line)[:197]) + "..."
	}
	return line
}
