package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// DefaultIdleTimeout is how long a session may go untouched before the reaper
// drops it.
const DefaultIdleTimeout = 30 * time.Minute

// Store manages active sessions.
type Store struct {
	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	cron     *cron.Cron
}

// NewStore creates an empty store. A non-positive idleTimeout selects
// DefaultIdleTimeout.
func NewStore(idleTimeout time.Duration, logger *slog.Logger) *Store {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// GetOrCreate returns the session for id, creating one with an empty
// transcript when none exists. An empty id gets a new identifier. Repeated
// calls with the same id return the same session.
func (st *Store) GetOrCreate(id string) *Session {
	if id == "" {
		id = NewID()
	}
	now := st.now()

	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		sess.touch(now)
		return sess
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[id]; ok {
		sess.touch(now)
		return sess
	}
	sess = newSession(id, st.now)
	st.sessions[id] = sess
	st.logger.Debug("session created", "session", id)
	return sess
}

// Get returns the session for id if it exists.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Remove drops the session for id.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of active sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle for longer than the idle timeout and returns how
// many were removed. Sessions with a turn in flight are kept.
func (st *Store) Sweep() int {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, sess := range st.sessions {
		idle, busy := sess.idleSince(now)
		if busy || idle <= st.idleTimeout {
			continue
		}
		delete(st.sessions, id)
		removed++
		st.logger.Info("session expired", "session", id, "idle", idle.Round(time.Second))
	}
	return removed
}

// StartReaper runs Sweep on a cron schedule (for example "@every 1m")
// until StopReaper is called.
func (st *Store) StartReaper(schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { st.Sweep() }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	st.mu.Lock()
	if st.cron != nil {
		st.mu.Unlock()
		return fmt.Errorf("reaper already running")
	}
	st.cron = c
	st.mu.Unlock()

	c.Start()
	return nil
}

// StopReaper stops the sweep schedule and waits for a running sweep.
func (st *Store) StopReaper() {
	st.mu.Lock()
	c := st.cron
	st.cron = nil
	st.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
