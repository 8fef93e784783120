// Package backend provides the knowledge stores the agent retrieves from: the
// hosted Supabase project and a local chromem-go collection for offline work.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultSource is the metadata source tag of the DAU site pages.
const DefaultSource = "dau_docs"

// Page is one chunk of a documentation page.
type Page struct {
	URL         string  `json:"url"`
	ChunkNumber int     `json:"chunk_number"`
	Title       string  `json:"title"`
	Summary     string  `json:"summary"`
	Content     string  `json:"content"`
	Similarity  float64 `json:"similarity"`
}

// Retriever returns the chunks closest to a query embedding.
type Retriever interface {
	MatchPages(ctx context.Context, embedding []float32, count int) ([]Page, error)
}

// PageLister is implemented by stores that can enumerate their pages.
type PageLister interface {
	ListPages(ctx context.Context) ([]string, error)
}

// EmbedFunc turns text into an embedding vector.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// OpenAIEmbedder returns an EmbedFunc backed by the embeddings endpoint of
// client.
func OpenAIEmbedder(client *openai.Client, model string) EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(model),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, errors.New("embedding response contained no data")
		}
		return resp.Data[0].Embedding, nil
	}
}

// FormatPages renders matched chunks as markdown sections separated by rules.
func FormatPages(pages []Page) string {
	sections := make([]string, 0, len(pages))
	for _, p := range pages {
		sections = append(sections, fmt.Sprintf("# %s\n\n%s", p.Title, p.Content))
	}
	return strings.Join(sections, "\n\n---\n\n")
}
