// Package agent defines the streaming agent contract the chat server consumes
// and an OpenAI-backed implementation that answers from retrieved DAU pages.
package agent

import (
	"context"
	"errors"
	"iter"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/backend"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
	"github.com/sashabaranov/go-openai"
)

// ErrStreamConsumed is yielded when Deltas is ranged over a second time.
var ErrStreamConsumed = errors.New("stream already consumed")

// Dependencies bundles the client handles an agent run needs. Handles are
// built once at startup and shared by all turns.
type Dependencies struct {
	Backend     backend.Retriever
	Completions *openai.Client
}

// Agent starts one streamed answer to prompt given the prior conversation.
type Agent interface {
	RunStream(ctx context.Context, prompt string, deps Dependencies, history []chat.Message) (Result, error)
}

// Result is an open streaming run. Deltas yields text fragments in arrival
// order and can be consumed once; breaking out of the loop abandons the rest.
// Close releases the underlying connection and is safe to call more than once.
type Result interface {
	Deltas() iter.Seq2[string, error]
	Close() error
}
