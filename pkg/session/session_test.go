package session

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/parth-patel-1/DAU-Chatbot/pkg/agent"
	"github.com/parth-patel-1/DAU-Chatbot/pkg/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAgent replays fragments and then, optionally, an error.
type scriptedAgent struct {
	fragments []string
	streamErr error
	startErr  error

	mu        sync.Mutex
	histories [][]chat.Message
	results   []*scriptedResult
	release   chan struct{}
}

func (a *scriptedAgent) RunStream(_ context.Context, _ string, _ agent.Dependencies, history []chat.Message) (agent.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.histories = append(a.histories, history)
	if a.startErr != nil {
		return nil, a.startErr
	}
	r := &scriptedResult{agent: a}
	a.results = append(a.results, r)
	return r, nil
}

type scriptedResult struct {
	agent  *scriptedAgent
	closed bool
}

func (r *scriptedResult) Deltas() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range r.agent.fragments {
			if r.agent.release != nil {
				<-r.agent.release
			}
			if !yield(f, nil) {
				return
			}
		}
		if r.agent.streamErr != nil {
			yield("", r.agent.streamErr)
		}
	}
}

func (r *scriptedResult) Close() error {
	r.closed = true
	return nil
}

func TestRun_CommitsConcatenatedReply(t *testing.T) {
	a := &scriptedAgent{fragments: []string{"DAU offers ", "B.Tech, ", "M.Tech ", "and PhD programs."}}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	sess := NewStore(0, nil).GetOrCreate("s1")

	var partials, deltas []string
	reply, err := h.Run(context.Background(), sess, "What programs does DAU offer?", func(partial, delta string) error {
		partials = append(partials, partial)
		deltas = append(deltas, delta)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "DAU offers B.Tech, M.Tech and PhD programs.", reply.Content)
	assert.Equal(t, a.fragments, deltas)
	assert.Equal(t, []string{
		"DAU offers ",
		"DAU offers B.Tech, ",
		"DAU offers B.Tech, M.Tech ",
		"DAU offers B.Tech, M.Tech and PhD programs.",
	}, partials)

	msgs := sess.Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.KindUserPrompt, msgs[0].Kind)
	assert.Equal(t, "What programs does DAU offer?", msgs[0].Content)
	assert.Equal(t, chat.KindText, msgs[1].Kind)
	assert.Equal(t, chat.RoleAssistant, msgs[1].Role)
	assert.Equal(t, reply.Content, msgs[1].Content)

	assert.True(t, a.results[0].closed)
	assert.False(t, sess.Busy())
}

func TestRun_HistoryExcludesPendingTurn(t *testing.T) {
	a := &scriptedAgent{fragments: []string{"ok"}}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	sess := NewStore(0, nil).GetOrCreate("s1")

	for i := 0; i < 3; i++ {
		_, err := h.Run(context.Background(), sess, fmt.Sprintf("q%d", i), nil)
		require.NoError(t, err)
	}

	require.Len(t, a.histories, 3)
	assert.Empty(t, a.histories[0])
	assert.Len(t, a.histories[1], 2)
	assert.Len(t, a.histories[2], 4)
	assert.Equal(t, "q1", a.histories[2][2].Content)
}

func TestRun_TranscriptGrowsByTwoPerTurn(t *testing.T) {
	a := &scriptedAgent{fragments: []string{"a", "b"}}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	sess := NewStore(0, nil).GetOrCreate("s1")

	for n := 1; n <= 10; n++ {
		_, err := h.Run(context.Background(), sess, fmt.Sprintf("question %d", n), nil)
		require.NoError(t, err)
		assert.Equal(t, 2*n, sess.Transcript().Len())
	}

	msgs := sess.Transcript().Messages()
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, fmt.Sprintf("question %d", i/2+1), msgs[i].Content)
		assert.Equal(t, chat.KindUserPrompt, msgs[i].Kind)
		assert.Equal(t, chat.KindText, msgs[i+1].Kind)
	}
}

func TestRun_StreamErrorCommitsNothing(t *testing.T) {
	boom := errors.New("connection reset by peer")
	a := &scriptedAgent{fragments: []string{"Engineering a"}, streamErr: boom}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	sess := NewStore(0, nil).GetOrCreate("s1")

	var seen string
	_, err := h.Run(context.Background(), sess, "Tell me about engineering", func(partial, _ string) error {
		seen = partial
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.Equal(t, StateStreaming, turnErr.State)

	assert.Equal(t, "Engineering a", seen)
	msgs := sess.Transcript().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, chat.KindUserPrompt, msgs[0].Kind)
	assert.True(t, a.results[0].closed)
	assert.False(t, sess.Busy())
}

func TestRun_StartErrorCommitsNothing(t *testing.T) {
	a := &scriptedAgent{startErr: errors.New("401 unauthorized")}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	sess := NewStore(0, nil).GetOrCreate("s1")

	_, err := h.Run(context.Background(), sess, "hi", nil)

	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.Equal(t, StateAwaitingFirstFragment, turnErr.State)
	assert.Equal(t, 1, sess.Transcript().Len())
}

func TestRun_AbandonedBySink(t *testing.T) {
	a := &scriptedAgent{fragments: []string{"one", "two", "three"}}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	sess := NewStore(0, nil).GetOrCreate("s1")

	gone := errors.New("client went away")
	calls := 0
	_, err := h.Run(context.Background(), sess, "hi", func(_, _ string) error {
		calls++
		return gone
	})

	assert.ErrorIs(t, err, gone)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, sess.Transcript().Len())
	assert.True(t, a.results[0].closed, "abandoned stream is closed")
}

func TestRun_EmptyPrompt(t *testing.T) {
	a := &scriptedAgent{}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	sess := NewStore(0, nil).GetOrCreate("s1")

	for _, p := range []string{"", "   ", "\n\t"} {
		_, err := h.Run(context.Background(), sess, p, nil)
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	}
	assert.Equal(t, 0, sess.Transcript().Len())
	assert.Empty(t, a.histories)
}

func TestRun_RejectsConcurrentTurn(t *testing.T) {
	a := &scriptedAgent{fragments: []string{"slow"}, release: make(chan struct{})}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	sess := NewStore(0, nil).GetOrCreate("s1")

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := h.Run(context.Background(), sess, "first", func(_, _ string) error { return nil })
		done <- err
	}()
	go func() {
		for !sess.Busy() {
			time.Sleep(time.Millisecond)
		}
		close(started)
	}()
	<-started

	_, err := h.Run(context.Background(), sess, "second", nil)
	assert.ErrorIs(t, err, ErrTurnInFlight)
	assert.ErrorIs(t, sess.Clear(), ErrTurnInFlight)

	close(a.release)
	require.NoError(t, <-done)
	assert.Equal(t, 2, sess.Transcript().Len())
}

func TestRun_CancelledContext(t *testing.T) {
	a := &scriptedAgent{fragments: []string{"partial"}}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	sess := NewStore(0, nil).GetOrCreate("s1")

	ctx, cancel := context.WithCancel(context.Background())
	_, err := h.Run(ctx, sess, "hi", func(_, _ string) error {
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sess.Transcript().Len())
}

func TestStore_GetOrCreateIsIdempotent(t *testing.T) {
	st := NewStore(0, nil)

	s1 := st.GetOrCreate("abc")
	s1.Transcript().Append(chat.NewUserPrompt("hi"))
	s2 := st.GetOrCreate("abc")

	assert.Same(t, s1, s2)
	assert.Equal(t, 1, s2.Transcript().Len())
	assert.Equal(t, 1, st.Len())

	fresh := st.GetOrCreate("")
	assert.NotEmpty(t, fresh.ID())
	assert.NotEqual(t, "abc", fresh.ID())
	assert.Equal(t, 0, fresh.Transcript().Len())
}

func TestSession_Clear(t *testing.T) {
	sess := NewStore(0, nil).GetOrCreate("s")
	for i := 0; i < 5; i++ {
		sess.Transcript().Append(chat.NewUserPrompt("x"))
	}
	require.NoError(t, sess.Clear())
	assert.Equal(t, 0, sess.Transcript().Len())
}

func TestStore_Sweep(t *testing.T) {
	st := NewStore(time.Minute, nil)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }

	st.GetOrCreate("old")
	busy := st.GetOrCreate("busy")
	require.NoError(t, busy.begin())

	clock = clock.Add(2 * time.Minute)
	st.GetOrCreate("new")

	assert.Equal(t, 1, st.Sweep())
	_, ok := st.Get("old")
	assert.False(t, ok)
	_, ok = st.Get("busy")
	assert.True(t, ok, "sessions with a turn in flight survive")
	_, ok = st.Get("new")
	assert.True(t, ok)
}

func TestStore_Reaper(t *testing.T) {
	st := NewStore(time.Minute, nil)
	require.Error(t, st.StartReaper("not a schedule"))

	require.NoError(t, st.StartReaper("@every 1h"))
	assert.Error(t, st.StartReaper("@every 1h"))
	st.StopReaper()
	st.StopReaper()
}

func TestTurnState_String(t *testing.T) {
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "TurnState(42)", TurnState(42).String())
}

func TestRun_MarksSessionActiveWhenTurnEnds(t *testing.T) {
	st := NewStore(time.Minute, nil)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return clock }
	sess := st.GetOrCreate("s")

	a := &scriptedAgent{fragments: []string{"a long ", "answer"}}
	h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
	_, err := h.Run(context.Background(), sess, "hi", func(_, _ string) error {
		clock = clock.Add(5 * time.Minute)
		return nil
	})
	require.NoError(t, err)

	idle, busy := sess.idleSince(clock)
	assert.Zero(t, idle, "activity is recorded when the turn finishes")
	assert.False(t, busy)
	assert.Equal(t, 0, st.Sweep())
}

func TestRunWithStart(t *testing.T) {
	t.Run("called after the prompt is recorded", func(t *testing.T) {
		a := &scriptedAgent{fragments: []string{"ok"}}
		h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
		sess := NewStore(0, nil).GetOrCreate("s")

		var seen int
		_, err := h.RunWithStart(context.Background(), sess, "hi", func() error {
			seen = sess.Transcript().Len()
			assert.True(t, sess.Busy())
			assert.Empty(t, a.histories, "agent not asked yet")
			return nil
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, seen)
		assert.Equal(t, 2, sess.Transcript().Len())
	})

	t.Run("not called when the session is busy", func(t *testing.T) {
		h := NewTurnHandler(&scriptedAgent{}, agent.Dependencies{}, 0, nil)
		sess := NewStore(0, nil).GetOrCreate("s")
		require.NoError(t, sess.begin())

		called := false
		_, err := h.RunWithStart(context.Background(), sess, "hi", func() error {
			called = true
			return nil
		}, nil)
		assert.ErrorIs(t, err, ErrTurnInFlight)
		assert.False(t, called)
		assert.Equal(t, 0, sess.Transcript().Len())
	})

	t.Run("error abandons the turn", func(t *testing.T) {
		a := &scriptedAgent{fragments: []string{"ok"}}
		h := NewTurnHandler(a, agent.Dependencies{}, 0, nil)
		sess := NewStore(0, nil).GetOrCreate("s")

		gone := errors.New("client went away")
		_, err := h.RunWithStart(context.Background(), sess, "hi", func() error { return gone }, nil)
		assert.ErrorIs(t, err, gone)
		assert.Empty(t, a.histories)
		assert.Equal(t, 1, sess.Transcript().Len())
		assert.False(t, sess.Busy())
	})
}
