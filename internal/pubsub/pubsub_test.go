package pubsub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/draft-bot/internal/engine"
)

// loopback echoes published events back, like a broker with one instance.
type loopback struct {
	mu        sync.Mutex
	ch        chan engine.Event
	published []engine.Event
	fail      bool
	closed    bool
}

func newLoopback() *loopback { return &loopback{ch: make(chan engine.Event, 16)} }

func (l *loopback) Publish(evt engine.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return errors.New("broker down")
	}
	l.published = append(l.published, evt)
	l.ch <- evt
	return nil
}

func (l *loopback) Subscribe() (<-chan engine.Event, error) { return l.ch, nil }

func (l *loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	close(l.ch)
	return nil
}

func recvEvent(t *testing.T, ch <-chan engine.Event, within time.Duration) engine.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed unexpectedly")
		}
		return evt
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return engine.Event{}
	}
}

func recvNoEvent(t *testing.T, ch <-chan engine.Event, within time.Duration) {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no event within %v, got %+v", within, evt)
	case <-time.After(within):
	}
}

func TestBus_FiltersByScope(t *testing.T) {
	b := New(nil)
	general := b.Subscribe("general")
	random := b.Subscribe("random")
	all := b.Subscribe("")

	b.Publish(engine.Event{Type: engine.EvtPickMade, Scope: "general", Item: "x"})

	assert.Equal(t, "x", recvEvent(t, general, 100*time.Millisecond).Item)
	assert.Equal(t, "general", recvEvent(t, all, 100*time.Millisecond).Scope)
	recvNoEvent(t, random, 50*time.Millisecond)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := New(nil)
	ch := b.Subscribe("general")
	b.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)

	// publishing after the last subscriber left is harmless
	b.Publish(engine.Event{Type: engine.EvtTurnChanged, Scope: "general"})
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := New(nil)
	b.buffer = 1
	ch := b.Subscribe("general")

	done := make(chan struct{})
	go func() {
		for range 5 {
			b.Publish(engine.Event{Type: engine.EvtTurnChanged, Scope: "general"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	recvEvent(t, ch, 50*time.Millisecond)
}

func TestBus_RoutesThroughUpstream(t *testing.T) {
	up := newLoopback()
	b, err := NewWithUpstream(up, nil)
	require.NoError(t, err)
	ch := b.Subscribe("general")

	b.Publish(engine.Event{Type: engine.EvtDraftStarted, Scope: "general"})

	assert.Equal(t, engine.EvtDraftStarted, recvEvent(t, ch, 200*time.Millisecond).Type)
	recvNoEvent(t, ch, 50*time.Millisecond)

	up.mu.Lock()
	assert.Len(t, up.published, 1)
	up.mu.Unlock()

	require.NoError(t, b.Close())
	assert.True(t, up.closed)
}

func TestBus_FallsBackToLocalWhenUpstreamFails(t *testing.T) {
	up := newLoopback()
	up.fail = true
	b, err := NewWithUpstream(up, nil)
	require.NoError(t, err)
	ch := b.Subscribe("general")

	b.Publish(engine.Event{Type: engine.EvtPickMade, Scope: "general"})
	assert.Equal(t, engine.EvtPickMade, recvEvent(t, ch, 200*time.Millisecond).Type)
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"":           "_",
		"general":    "general",
		"guild.chan": "guild_chan",
		"a b*c>":     "a_b_c_",
		"123456789":  "123456789",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeToken(in), "input %q", in)
	}
}
