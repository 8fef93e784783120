package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/agent"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
)

var (
	// ErrTurnInFlight is returned when a session already has a turn streaming.
	ErrTurnInFlight = errors.New("a response is already being generated for this session")
	// ErrEmptyPrompt is returned for blank submissions.
	ErrEmptyPrompt = errors.New("message is empty")
)

// TurnState is the progress of one request/response cycle.
type TurnState int

const (
	StateIdle TurnState = iota
	StateAwaitingFirstFragment
	StateStreaming
	StateCommitted
	StateFailed
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstFragment:
		return "awaiting_first_fragment"
	case StateStreaming:
		return "streaming"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("TurnState(%d)", int(s))
	}
}

// FragmentFunc receives the accumulated text and the newest fragment after
// each fragment arrives. Returning an error abandons the turn.
type FragmentFunc func(partial, delta string) error

// TurnHandler runs turns against an agent with a fixed set of dependencies.
type TurnHandler struct {
	agent   agent.Agent
	deps    agent.Dependencies
	timeout time.Duration
	logger  *slog.Logger
}

// NewTurnHandler creates a handler. A zero timeout leaves turns unbounded.
func NewTurnHandler(a agent.Agent, deps agent.Dependencies, timeout time.Duration, logger *slog.Logger) *TurnHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnHandler{agent: a, deps: deps, timeout: timeout, logger: logger}
}

// TurnError reports the state a failed turn reached before it failed.
type TurnError struct {
	State TurnState
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed while %s: %v", e.State, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// Run appends prompt to the session transcript, streams the agent's answer
// through onFragment, and on clean completion commits exactly one assistant
// message, which it returns. The agent sees the transcript as it was before
// prompt was appended. On failure nothing beyond the user message is
// recorded and the partial text is dropped.
func (h *TurnHandler) Run(ctx context.Context, sess *Session, prompt string, onFragment FragmentFunc) (chat.Message, error) {
	return h.RunWithStart(ctx, sess, prompt, nil, onFragment)
}

// RunWithStart is Run with a hook called once the turn owns the session and
// the user message is recorded, before the agent is asked. A session that is
// already busy fails with ErrTurnInFlight without calling onStart. An error
// from onStart abandons the turn.
func (h *TurnHandler) RunWithStart(ctx context.Context, sess *Session, prompt string, onStart func() error, onFragment FragmentFunc) (chat.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return chat.Message{}, ErrEmptyPrompt
	}
	if err := sess.begin(); err != nil {
		return chat.Message{}, err
	}
	defer sess.end()
	defer sess.markActive()

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	history := sess.Transcript().Messages()
	sess.Transcript().Append(chat.NewUserPrompt(prompt))

	log := h.logger.With("session", sess.ID())
	state := StateAwaitingFirstFragment
	fail := func(err error) (chat.Message, error) {
		log.Warn("turn failed", "state", state.String(), "error", err)
		return chat.Message{}, &TurnError{State: state, Err: err}
	}

	if onStart != nil {
		if err := onStart(); err != nil {
			return fail(err)
		}
	}

	result, err := h.agent.RunStream(ctx, prompt, h.deps, history)
	if err != nil {
		return fail(err)
	}
	defer result.Close()

	var acc strings.Builder
	fragments := 0
	for delta, err := range result.Deltas() {
		if err != nil {
			return fail(err)
		}
		state = StateStreaming
		fragments++
		acc.WriteString(delta)
		if onFragment != nil {
			if err := onFragment(acc.String(), delta); err != nil {
				return fail(err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	reply := chat.NewText(acc.String())
	sess.Transcript().Append(reply)
	log.Info("turn committed", "state", StateCommitted.String(), "fragments", fragments, "chars", acc.Len())
	return reply, nil
}
