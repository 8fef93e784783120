package backend

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
)

// LocalStore keeps page chunks in a chromem-go collection.
type LocalStore struct {
	collection *chromem.Collection
	source     string
}

// OpenLocalStore opens the collection name in the database at path. An empty
// path keeps the database in memory.
func OpenLocalStore(path, name, source string, embed EmbedFunc) (*LocalStore, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, true)
		if err != nil {
			return nil, fmt.Errorf("failed to open local store %s: %w", path, err)
		}
	}

	if source == "" {
		source = DefaultSource
	}

	collection, err := db.GetOrCreateCollection(name, map[string]string{"source": source}, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}

	return &LocalStore{collection: collection, source: source}, nil
}

// Count returns the number of stored chunks.
func (l *LocalStore) Count() int {
	return l.collection.Count()
}

// AddPages stores chunks; the collection's embedding func fills in missing
// vectors.
func (l *LocalStore) AddPages(ctx context.Context, pages []Page) error {
	docs := make([]chromem.Document, 0, len(pages))
	for _, p := range pages {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s#%d", p.URL, p.ChunkNumber),
			Content: p.Content,
			Metadata: map[string]string{
				"url":          p.URL,
				"title":        p.Title,
				"summary":      p.Summary,
				"chunk_number": strconv.Itoa(p.ChunkNumber),
				"source":       l.source,
			},
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := l.collection.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("failed to add pages: %w", err)
	}
	return nil
}

// DeleteURL removes every chunk of the page at pageURL.
func (l *LocalStore) DeleteURL(ctx context.Context, pageURL string) error {
	if err := l.collection.Delete(ctx, map[string]string{"url": pageURL}, nil); err != nil {
		return fmt.Errorf("failed to delete %s: %w", pageURL, err)
	}
	return nil
}

// MatchPages returns up to count chunks ordered by similarity.
func (l *LocalStore) MatchPages(ctx context.Context, embedding []float32, count int) ([]Page, error) {
	n := min(count, l.collection.Count())
	if n <= 0 {
		return nil, nil
	}

	results, err := l.collection.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query local store: %w", err)
	}

	pages := make([]Page, 0, len(results))
	for _, res := range results {
		chunk, _ := strconv.Atoi(res.Metadata["chunk_number"])
		pages = append(pages, Page{
			URL:         res.Metadata["url"],
			ChunkNumber: chunk,
			Title:       res.Metadata["title"],
			Summary:     res.Metadata["summary"],
			Content:     res.Content,
			Similarity:  float64(res.Similarity),
		})
	}
	return pages, nil
}
