package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/backend"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRetriever struct {
	pages []backend.Page
	count int
}

func (s *stubRetriever) MatchPages(_ context.Context, _ []float32, count int) ([]backend.Page, error) {
	s.count = count
	return s.pages, nil
}

// fakeOpenAI serves the embeddings and streaming chat endpoints.
type fakeOpenAI struct {
	fragments   []string
	embedStatus int
	chatReq     openai.ChatCompletionRequest
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/v1/embeddings":
		if f.embedStatus != 0 {
			w.WriteHeader(f.embedStatus)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream unavailable","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.6,0.8]}],"model":"text-embedding-3-small"}`))
	case "/v1/chat/completions":
		_ = json.NewDecoder(r.Body).Decode(&f.chatReq)
		w.Header().Set("Content-Type", "text/event-stream")
		for i, frag := range f.fragments {
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   "gpt-4o-mini",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": frag}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
			if i == 0 {
				// An empty delta must not surface as a fragment.
				fmt.Fprint(w, `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant"}}]}`+"\n\n")
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	default:
		http.NotFound(w, r)
	}
}

func newDeps(t *testing.T, fake *fakeOpenAI, retriever backend.Retriever) Dependencies {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return Dependencies{Backend: retriever, Completions: openai.NewClientWithConfig(cfg)}
}

func TestExpert_RunStream(t *testing.T) {
	fake := &fakeOpenAI{fragments: []string{"DAU offers ", "B.Tech ", "and M.Tech."}}
	retriever := &stubRetriever{pages: []backend.Page{{Title: "Programs", Content: "B.Tech in ICT"}}}
	deps := newDeps(t, fake, retriever)

	history := []chat.Message{
		chat.NewUserPrompt("hello"),
		chat.NewText("Hi! Ask me about DAU."),
		{Kind: chat.KindToolCall, Content: "{}"},
	}

	expert := NewExpert("gpt-4o-mini", "text-embedding-3-small", 5)
	result, err := expert.RunStream(context.Background(), "What programs does DAU offer?", deps, history)
	require.NoError(t, err)
	defer result.Close()

	var got []string
	for delta, err := range result.Deltas() {
		require.NoError(t, err)
		got = append(got, delta)
	}

	assert.Equal(t, fake.fragments, got)
	assert.Equal(t, 5, retriever.count)

	msgs := fake.chatReq.Messages
	require.Len(t, msgs, 4, "system, two history records, prompt; tool call skipped")
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.True(t, strings.Contains(msgs[0].Content, "# Programs\n\nB.Tech in ICT"))
	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[2].Role)
	assert.Equal(t, "What programs does DAU offer?", msgs[3].Content)
	assert.True(t, fake.chatReq.Stream)
}

func TestExpert_DeltasConsumedOnce(t *testing.T) {
	fake := &fakeOpenAI{fragments: []string{"a", "b"}}
	deps := newDeps(t, fake, &stubRetriever{})

	result, err := NewExpert("m", "e", 5).RunStream(context.Background(), "q", deps, nil)
	require.NoError(t, err)
	defer result.Close()

	for _, err := range result.Deltas() {
		require.NoError(t, err)
	}

	var second []error
	for _, err := range result.Deltas() {
		second = append(second, err)
	}
	require.Len(t, second, 1)
	assert.ErrorIs(t, second[0], ErrStreamConsumed)

	assert.NoError(t, result.Close())
	assert.NoError(t, result.Close(), "close is idempotent")
}

func TestExpert_EmptyRetrievalStillAnswers(t *testing.T) {
	fake := &fakeOpenAI{fragments: []string{"I could not find that."}}
	deps := newDeps(t, fake, &stubRetriever{})

	result, err := NewExpert("m", "e", 5).RunStream(context.Background(), "q", deps, nil)
	require.NoError(t, err)
	defer result.Close()
	for _, err := range result.Deltas() {
		require.NoError(t, err)
	}

	assert.Contains(t, fake.chatReq.Messages[0].Content, "No relevant documentation found.")
}

func TestExpert_EmbeddingFailure(t *testing.T) {
	fake := &fakeOpenAI{embedStatus: http.StatusServiceUnavailable}
	deps := newDeps(t, fake, &stubRetriever{})

	_, err := NewExpert("m", "e", 5).RunStream(context.Background(), "q", deps, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding")
}

func TestExpert_MissingDependencies(t *testing.T) {
	_, err := NewExpert("m", "e", 5).RunStream(context.Background(), "q", Dependencies{}, nil)
	assert.Error(t, err)
}
