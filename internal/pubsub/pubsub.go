// Package pubsub fans draft events out to transports. A Bus delivers to
// in-process subscribers and, when given an Upstream, routes every event
// through it so other instances see the same stream.
package pubsub

import (
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-bot/internal/engine"
)

// Upstream is an external broker the bus publishes through (NATS).
// Events published upstream come back on the channel returned by Subscribe.
type Upstream interface {
	Publish(engine.Event) error
	Subscribe() (<-chan engine.Event, error)
	Close() error
}

type subscriber struct {
	scope string // empty receives every scope
	ch    chan engine.Event
}

type Bus struct {
	mu       sync.RWMutex
	subs     []subscriber
	upstream Upstream
	log      *zap.Logger
	buffer   int
}

func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{log: log, buffer: 32}
}

// NewWithUpstream bridges the bus to up: Publish sends upstream only and
// events arriving from upstream are delivered locally.
func NewWithUpstream(up Upstream, log *zap.Logger) (*Bus, error) {
	b := New(log)
	ch, err := up.Subscribe()
	if err != nil {
		return nil, err
	}
	b.upstream = up

	go func() {
		for evt := range ch {
			b.publishLocal(evt)
		}
		b.log.Debug("upstream channel closed")
	}()
	return b, nil
}

// Subscribe returns a channel of events for scope, or for all scopes when
// scope is empty. Slow subscribers miss events rather than block publishers.
func (b *Bus) Subscribe(scope string) <-chan engine.Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan engine.Event, b.buffer)
	b.subs = append(b.subs, subscriber{scope: scope, ch: ch})
	return ch
}

func (b *Bus) Unsubscribe(ch <-chan engine.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.ch == ch {
			close(s.ch)
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish implements the lobby's event sink.
func (b *Bus) Publish(events ...engine.Event) {
	for _, evt := range events {
		if b.upstream == nil {
			b.publishLocal(evt)
			continue
		}
		if err := b.upstream.Publish(evt); err != nil {
			// keep local subscribers informed even when the broker is down
			b.log.Warn("upstream publish failed",
				zap.String("scope", evt.Scope),
				zap.String("event", string(evt.Type)),
				zap.Error(err))
			b.publishLocal(evt)
		}
	}
}

func (b *Bus) publishLocal(evt engine.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.subs {
		if s.scope != "" && s.scope != evt.Scope {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			b.log.Debug("dropping event for slow subscriber",
				zap.String("scope", evt.Scope),
				zap.String("event", string(evt.Type)))
		}
	}
}

// Close closes every subscriber channel and the upstream, if any.
func (b *Bus) Close() error {
	b.mu.Lock()
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
	b.mu.Unlock()

	if b.upstream != nil {
		return b.upstream.Close()
	}
	return nil
}
