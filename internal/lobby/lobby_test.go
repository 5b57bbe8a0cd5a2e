package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/internal/export"
	"github.com/DoyleJ11/draft-bot/pkg/types"
)

const owner = "owner"

type chanSink chan engine.Event

func (s chanSink) Publish(events ...engine.Event) {
	for _, e := range events {
		s <- e
	}
}

type recordingExporter struct {
	mu    sync.Mutex
	snaps []types.Snapshot
}

func (r *recordingExporter) Export(_ context.Context, snap types.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *recordingExporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recordingExporter) last() types.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

// helper: receive the next event of type want, skipping others, so tests never hang
func recvEvent(t *testing.T, ch <-chan engine.Event, want engine.EventType, within time.Duration) engine.Event {
	t.Helper()
	deadline := time.After(within)
	for {
		select {
		case evt := <-ch:
			if evt.Type == want {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
			return engine.Event{} // unreachable
		}
	}
}

func recvNoEvent(t *testing.T, ch <-chan engine.Event, within time.Duration) {
	t.Helper()
	select {
	case evt := <-ch:
		t.Fatalf("expected no event within %v, but got: %+v", within, evt)
	case <-time.After(within):
	}
}

func drain(ch <-chan engine.Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func newSession(t *testing.T, rounds int) *engine.Session {
	t.Helper()
	s, err := engine.NewSession(engine.Config{ID: "s1", Scope: "general", Owner: owner, Rounds: rounds})
	require.NoError(t, err)
	return s
}

func send(t *testing.T, l *Lobby, cmd engine.Command) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := l.Send(ctx, cmd)
	require.NoError(t, err)
	return res
}

func mustSend(t *testing.T, l *Lobby, cmd engine.Command) Result {
	t.Helper()
	res := send(t, l, cmd)
	require.Nil(t, res.Err, "command %s", cmd.Type)
	return res
}

func state(t *testing.T, l *Lobby) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := l.State(ctx)
	require.NoError(t, err)
	return v
}

// startActive runs a 2-participant draft up to its first turn.
func startActive(t *testing.T, l *Lobby, items ...string) {
	t.Helper()
	mustSend(t, l, engine.Command{Type: engine.CmdJoin, Sender: "a"})
	mustSend(t, l, engine.Command{Type: engine.CmdJoin, Sender: "b"})
	mustSend(t, l, engine.Command{Type: engine.CmdSetPool, Sender: owner, Items: items})
	mustSend(t, l, engine.Command{Type: engine.CmdBegin, Sender: owner})
}

func TestLobby_Pick_PublishesEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := make(chanSink, 64)
	l := NewLobby(ctx, newSession(t, 1), WithSink(sink))
	startActive(t, l, "x", "y")
	recvEvent(t, sink, engine.EvtDraftStarted, 100*time.Millisecond)

	res := mustSend(t, l, engine.Command{Type: engine.CmdPick, Sender: "a", Text: "x"})
	assert.Equal(t, engine.StateActive, res.State)
	assert.Equal(t, "x", res.Payload.(engine.Picked).Item.Name)

	made := recvEvent(t, sink, engine.EvtPickMade, 100*time.Millisecond)
	assert.Equal(t, "a", made.Participant)
	assert.Equal(t, "general", made.Scope)
	turn := recvEvent(t, sink, engine.EvtTurnChanged, 100*time.Millisecond)
	assert.Equal(t, "b", turn.Participant)

	l.Inbox() <- Shutdown{}
}

func TestLobby_ErrorsComeBackTyped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, newSession(t, 1))
	startActive(t, l, "x", "y")

	res := send(t, l, engine.Command{Type: engine.CmdPick, Sender: "b", Text: "x"})
	require.NotNil(t, res.Err)
	assert.Equal(t, engine.KindNotYourTurn, res.Err.Kind)
	assert.Equal(t, 0, state(t, l).Turn)
}

func TestLobby_TimerExpiry_SkipsAndRearms(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := make(chanSink, 64)
	l := NewLobby(ctx, newSession(t, 2), WithSink(sink))
	startActive(t, l, "w", "x", "y", "z")

	mustSend(t, l, engine.Command{Type: engine.CmdTimer, Sender: owner, Duration: 80 * time.Millisecond})
	v := state(t, l)
	assert.True(t, v.TimerActive)
	assert.Equal(t, 0, v.TimerGeneration)

	expired := recvEvent(t, sink, engine.EvtTimerExpired, time.Second)
	assert.Equal(t, "a", expired.Participant)
	next := recvEvent(t, sink, engine.EvtTurnChanged, 100*time.Millisecond)
	assert.Equal(t, "b", next.Participant)

	v = state(t, l)
	assert.Equal(t, 1, v.Turn)
	assert.Equal(t, 4, len(v.Snapshot.Undrafted), "a skipped turn consumes no item")
	assert.True(t, v.TimerActive, "the next turn gets its own countdown")
	assert.Equal(t, 1, v.TimerGeneration)

	mustSend(t, l, engine.Command{Type: engine.CmdTimer, Sender: owner, Duration: 0})
	assert.False(t, state(t, l).TimerActive)
}

func TestLobby_TimerGen_DropsStaleFires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := make(chanSink, 64)
	l := NewLobby(ctx, newSession(t, 2), WithSink(sink))
	startActive(t, l, "w", "x", "y", "z")

	mustSend(t, l, engine.Command{Type: engine.CmdTimer, Sender: owner, Duration: time.Minute})
	mustSend(t, l, engine.Command{Type: engine.CmdPick, Sender: "a", Text: "x"})
	drain(sink)

	// a fire armed for turn 0 arriving after the pick
	l.Inbox() <- TimerFired{Generation: 0}
	recvNoEvent(t, sink, 100*time.Millisecond)

	v := state(t, l)
	assert.Equal(t, 1, v.Turn)
	assert.Equal(t, 1, v.TimerGeneration, "the pick re-armed the countdown for the next turn")
	assert.True(t, v.TimerActive)
}

func TestLobby_Finish_ExportsAndNotifies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exp := &recordingExporter{}
	finished := make(chan string, 1)
	l := NewLobby(ctx, newSession(t, 1),
		WithExporter(export.Multi{exp}),
		WithOnFinish(func(l *Lobby) { finished <- l.ID() }),
	)
	startActive(t, l, "x", "y")
	mustSend(t, l, engine.Command{Type: engine.CmdTimer, Sender: owner, Duration: time.Minute})

	mustSend(t, l, engine.Command{Type: engine.CmdPick, Sender: "a", Text: "x"})
	res := mustSend(t, l, engine.Command{Type: engine.CmdPick, Sender: "b", Text: "y"})
	assert.Equal(t, engine.StateComplete, res.State)

	select {
	case id := <-finished:
		assert.Equal(t, "s1", id)
	case <-time.After(time.Second):
		t.Fatal("onFinish was not called")
	}
	assert.Equal(t, 1, exp.count())
	assert.False(t, state(t, l).TimerActive)

	// still readable after the draft ended
	res = mustSend(t, l, engine.Command{Type: engine.CmdTeams})
	assert.Len(t, res.Payload.(engine.TeamsView).Teams, 2)

	// a second terminal command does not export again
	send(t, l, engine.Command{Type: engine.CmdForceStop, Sender: owner})
	assert.Equal(t, 1, exp.count())
}

func TestLobby_ForceStop_Exports(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exp := &recordingExporter{}
	l := NewLobby(ctx, newSession(t, 1), WithExporter(exp))
	mustSend(t, l, engine.Command{Type: engine.CmdJoin, Sender: "a"})
	mustSend(t, l, engine.Command{Type: engine.CmdJoin, Sender: "b"})

	res := mustSend(t, l, engine.Command{Type: engine.CmdForceStop, Sender: "mod", IsAdmin: true})
	assert.Equal(t, engine.StateAborted, res.State)
	require.Equal(t, 1, exp.count())

	snap := exp.last()
	assert.Equal(t, []string{"a", "b"}, snap.Order)
	require.Len(t, snap.Teams, 2)
	assert.Equal(t, "a", snap.Teams[0].ID)
	assert.Equal(t, "b", snap.Teams[1].ID)
}

func TestLobby_ConcurrentPicks_OneWinner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLobby(ctx, newSession(t, 2))
	startActive(t, l, "w", "x", "y", "z")
	mustSend(t, l, engine.Command{Type: engine.CmdTimer, Sender: owner, Duration: time.Millisecond})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := range 64 {
		sender := "a"
		if i%2 == 1 {
			sender = "b"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, scancel := context.WithTimeout(ctx, time.Second)
			defer scancel()
			res, err := l.Send(sctx, engine.Command{Type: engine.CmdPick, Sender: sender, Text: "x"})
			if err != nil || res.Err != nil {
				return
			}
			if p, ok := res.Payload.(engine.Picked); ok && p.Item.Name == "x" {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, wins, 1)
	// A skipped turn never takes an item, so only a pick can own x.

	snap := state(t, l).Snapshot
	owners, picks := 0, 0
	for _, team := range snap.Teams {
		picks += len(team.Picks)
		for _, it := range team.Picks {
			if it == "x" {
				owners++
			}
		}
	}
	assert.Equal(t, wins, owners)
	assert.Equal(t, 4, picks+len(snap.Undrafted))
}

func TestLobby_Shutdown_StopsTimer_NoFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := make(chanSink, 64)
	l := NewLobby(ctx, newSession(t, 1), WithSink(sink))
	startActive(t, l, "x", "y")
	mustSend(t, l, engine.Command{Type: engine.CmdTimer, Sender: owner, Duration: 50 * time.Millisecond})
	drain(sink)

	l.Inbox() <- Shutdown{}
	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop")
	}
	recvNoEvent(t, sink, 150*time.Millisecond)

	_, err := l.Send(context.Background(), engine.Command{Type: engine.CmdStatus})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLobby_ParentCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLobby(ctx, newSession(t, 1))
	cancel()

	select {
	case <-l.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby did not stop on parent cancel")
	}
}
