package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const matchFunction = "match_site_pages"

// Supabase talks to the PostgREST API of a Supabase project using the service
// key.
type Supabase struct {
	baseURL    string
	serviceKey string
	source     string
	httpClient *http.Client
}

// NewSupabase creates a client for the project at projectURL. An empty source
// selects DefaultSource.
func NewSupabase(projectURL, serviceKey, source string) *Supabase {
	if source == "" {
		source = DefaultSource
	}
	return &Supabase{
		baseURL:    strings.TrimRight(projectURL, "/"),
		serviceKey: serviceKey,
		source:     source,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// MatchPages calls the match_site_pages RPC.
func (s *Supabase) MatchPages(ctx context.Context, embedding []float32, count int) ([]Page, error) {
	body, err := json.Marshal(map[string]any{
		"query_embedding": embedding,
		"match_count":     count,
		"filter":          map[string]string{"source": s.source},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/rest/v1/rpc/"+matchFunction, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create match request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var pages []Page
	if err := s.do(req, &pages); err != nil {
		return nil, fmt.Errorf("%s: %w", matchFunction, err)
	}
	return pages, nil
}

// ListPages returns the distinct page URLs stored for the source.
func (s *Supabase) ListPages(ctx context.Context) ([]string, error) {
	q := url.Values{}
	q.Set("select", "url")
	q.Set("metadata->>source", "eq."+s.source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/rest/v1/site_pages?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}

	var rows []struct {
		URL string `json:"url"`
	}
	if err := s.do(req, &rows); err != nil {
		return nil, fmt.Errorf("list site_pages: %w", err)
	}

	seen := make(map[string]bool, len(rows))
	var urls []string
	for _, row := range rows {
		if row.URL == "" || seen[row.URL] {
			continue
		}
		seen[row.URL] = true
		urls = append(urls, row.URL)
	}
	return urls, nil
}

func (s *Supabase) do(req *http.Request, out any) error {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
