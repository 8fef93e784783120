package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/backend"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
	"github.com/sashabaranov/go-openai"
)

// DefaultSystemPrompt instructs the model to answer from retrieved DAU pages.
const DefaultSystemPrompt = `You are an expert on Dhirubhai Ambani University (DAU), formerly DA-IICT, in Gandhinagar.
You answer questions about its programs, admissions, faculty, research, campus life and events.
Base your answer on the documentation excerpts below. If they do not cover the question, say so
plainly and point the user to dau.ac.in instead of guessing. Keep answers concise and use markdown
lists for enumerations.`

// Expert answers questions by retrieving matching pages from the backend and
// streaming a chat completion grounded on them.
type Expert struct {
	Model          string
	EmbeddingModel string
	MatchCount     int
	SystemPrompt   string
	Logger         *slog.Logger
}

// NewExpert creates an Expert with the default prompt.
func NewExpert(model, embeddingModel string, matchCount int) *Expert {
	return &Expert{
		Model:          model,
		EmbeddingModel: embeddingModel,
		MatchCount:     matchCount,
		SystemPrompt:   DefaultSystemPrompt,
	}
}

// RunStream implements Agent.
func (e *Expert) RunStream(ctx context.Context, prompt string, deps Dependencies, history []chat.Message) (Result, error) {
	if deps.Completions == nil || deps.Backend == nil {
		return nil, errors.New("agent dependencies are not configured")
	}

	docs, err := e.retrieve(ctx, prompt, deps)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model:    e.Model,
		Messages: e.buildMessages(prompt, docs, history),
		Stream:   true,
	}

	stream, err := deps.Completions.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to start completion stream: %w", err)
	}
	return &completionResult{stream: stream}, nil
}

func (e *Expert) retrieve(ctx context.Context, prompt string, deps Dependencies) (string, error) {
	embed := backend.OpenAIEmbedder(deps.Completions, e.EmbeddingModel)
	vec, err := embed(ctx, prompt)
	if err != nil {
		return "", err
	}

	pages, err := deps.Backend.MatchPages(ctx, vec, e.MatchCount)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve documentation: %w", err)
	}

	e.logger().Debug("retrieved documentation", "chunks", len(pages))
	if len(pages) == 0 {
		return "No relevant documentation found.", nil
	}
	return backend.FormatPages(pages), nil
}

func (e *Expert) buildMessages(prompt, docs string, history []chat.Message) []openai.ChatCompletionMessage {
	system := e.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}

	messages := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: system + "\n\n## Documentation\n\n" + docs,
	}}

	for _, msg := range history {
		var role string
		switch msg.Kind {
		case chat.KindUserPrompt:
			role = openai.ChatMessageRoleUser
		case chat.KindText:
			role = openai.ChatMessageRoleAssistant
		case chat.KindSystemPrompt:
			role = openai.ChatMessageRoleSystem
		default:
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

func (e *Expert) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

type completionResult struct {
	stream    *openai.ChatCompletionStream
	consumed  atomic.Bool
	closeOnce sync.Once
}

func (r *completionResult) Deltas() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !r.consumed.CompareAndSwap(false, true) {
			yield("", ErrStreamConsumed)
			return
		}
		for {
			resp, err := r.stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(resp.Choices[0].Delta.Content, nil) {
				return
			}
		}
	}
}

func (r *completionResult) Close() error {
	r.closeOnce.Do(func() {
		r.stream.Close()
	})
	return nil
}
