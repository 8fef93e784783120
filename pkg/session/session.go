// Package session owns per-browser chat state and runs streamed turns
// against the agent.
package session

import (
	"sync"
	"time"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
)

// Session is the state of one browser session: its transcript and whether a
// turn is currently streaming.
type Session struct {
	id         string
	transcript *chat.Transcript

	now func() time.Time

	mu           sync.Mutex
	busy         bool
	lastActivity time.Time
}

func newSession(id string, now func() time.Time) *Session {
	return &Session{
		id:           id,
		transcript:   chat.NewTranscript(),
		now:          now,
		lastActivity: now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Transcript returns the session's message log.
func (s *Session) Transcript() *chat.Transcript {
	return s.transcript
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Clear empties the transcript. A session with a turn in flight is not
// cleared.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrTurnInFlight
	}
	s.transcript.Clear()
	return nil
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrTurnInFlight
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = now
}

// markActive records activity at the session clock's current time.
func (s *Session) markActive() {
	s.touch(s.now())
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity), s.busy
}
