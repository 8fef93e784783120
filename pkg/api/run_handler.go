package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/session"
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// TextDelta is the payload of a "text" event.
type TextDelta struct {
	Delta   string `json:"delta"`
	Content string `json:"content"`
}

// SendSSE writes one server-sent event and flushes it.
func SendSSE(w io.Writer, flusher http.Flusher, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}

// SendErrorSSE sends an error event.
func SendErrorSSE(w io.Writer, flusher http.Flusher, msg string) error {
	return SendSSE(w, flusher, "error", map[string]string{"error": msg})
}

// HandleChat runs one turn for the caller's session and streams it as
// server-sent events: "user" once, "text" per fragment, then "done" or
// "error".
func (s *Server) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, session.ErrEmptyPrompt.Error())
		return
	}

	sess := s.Session(w, r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	start := func() error {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		return nil
	}
	err := s.streamTurn(r.Context(), sess, req.Message, start, func(event string, data any) error {
		return SendSSE(w, flusher, event, data)
	})
	if err != nil {
		writeError(w, statusForTurnError(err), err.Error())
	}
}

type emitFunc func(event string, data any) error

// streamTurn runs a turn and reports it through emit. start runs, and the
// "user" event is emitted, only once the turn owns the session. A turn that
// never started returns its error with nothing emitted; later failures are
// reported as an "error" event. Nothing is emitted after ctx is cancelled
// since the client is gone.
func (s *Server) streamTurn(ctx context.Context, sess *session.Session, prompt string, start func() error, emit emitFunc) error {
	started := false
	onStart := func() error {
		started = true
		if start != nil {
			if err := start(); err != nil {
				return err
			}
		}
		if rendered, ok := s.Renderer.Render(chat.NewUserPrompt(prompt)); ok {
			return emit("user", rendered)
		}
		return nil
	}

	reply, err := s.Turns.RunWithStart(ctx, sess, prompt, onStart, func(partial, delta string) error {
		return emit("text", TextDelta{Delta: delta, Content: partial})
	})
	if err != nil {
		if !started {
			return err
		}
		if ctx.Err() == nil {
			emit("error", map[string]string{"error": describeTurnError(err)})
		}
		return nil
	}

	rendered, _ := s.Renderer.Render(reply)
	emit("done", rendered)
	return nil
}

// statusForTurnError maps a turn that was refused before it started.
func statusForTurnError(err error) int {
	switch {
	case errors.Is(err, session.ErrTurnInFlight):
		return http.StatusConflict
	case errors.Is(err, session.ErrEmptyPrompt):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// describeTurnError turns a failed turn into the message shown in the chat.
func describeTurnError(err error) string {
	switch {
	case errors.Is(err, session.ErrTurnInFlight), errors.Is(err, session.ErrEmptyPrompt):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "The response took too long and was abandoned. Please try again."
	default:
		var turnErr *session.TurnError
		if errors.As(err, &turnErr) {
			return fmt.Sprintf("The assistant could not answer: %v", turnErr.Err)
		}
		return err.Error()
	}
}
