package pubsub

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-bot/internal/engine"
)

// NATSUpstream publishes each event as JSON on <subject>.<scope> and
// listens on <subject>.> for events from every instance.
type NATSUpstream struct {
	nc      *nats.Conn
	subject string
	log     *zap.Logger

	mu  sync.Mutex
	sub *nats.Subscription
	out chan engine.Event
}

func NewNATSUpstream(url, subject string, log *zap.Logger) (*NATSUpstream, error) {
	nc, err := nats.Connect(url, nats.Name("draft-bot"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return newNATSUpstream(nc, subject, log), nil
}

func newNATSUpstream(nc *nats.Conn, subject string, log *zap.Logger) *NATSUpstream {
	if log == nil {
		log = zap.NewNop()
	}
	return &NATSUpstream{nc: nc, subject: strings.TrimSuffix(subject, "."), log: log}
}

// Subject is the NATS subject events for scope are published on.
func (u *NATSUpstream) Subject(scope string) string {
	return u.subject + "." + sanitizeToken(scope)
}

func (u *NATSUpstream) Publish(evt engine.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := u.nc.Publish(u.Subject(evt.Scope), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (u *NATSUpstream) Subscribe() (<-chan engine.Event, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.out != nil {
		return u.out, nil
	}

	out := make(chan engine.Event, 256)
	sub, err := u.nc.Subscribe(u.subject+".>", func(msg *nats.Msg) {
		var evt engine.Event
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			u.log.Warn("dropping malformed event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.out == nil {
			return
		}
		select {
		case u.out <- evt:
		default:
			u.log.Warn("upstream buffer full, dropping event", zap.String("subject", msg.Subject))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", u.subject, err)
	}
	u.sub = sub
	u.out = out
	return out, nil
}

// Close drains the subscription and the connection.
func (u *NATSUpstream) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	var err error
	if u.sub != nil {
		err = u.sub.Unsubscribe()
		u.sub = nil
	}
	u.nc.Close()
	if u.out != nil {
		close(u.out)
		u.out = nil
	}
	return err
}

// sanitizeToken makes scope usable as a single NATS subject token.
func sanitizeToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
