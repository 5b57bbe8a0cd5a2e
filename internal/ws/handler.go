package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-bot/internal/dispatch"
	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/internal/types"
)

// Events is the subscription half of the event bus.
type Events interface {
	Subscribe(scope string) <-chan engine.Event
	Unsubscribe(ch <-chan engine.Event)
}

type Options struct {
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*" in dev.
	OriginPatterns []string
	IdleTimeout    time.Duration
}

// Handler serves /ws?scope=...&user=...&name=... . Every frame the client
// sends is a chat line in scope; the socket receives replies to its own
// lines and every event in scope.
func Handler(d *dispatch.Dispatcher, bus Events, log *zap.Logger, opts Options) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 5 * time.Minute
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		scope, user := q.Get("scope"), q.Get("user")
		if scope == "" || user == "" {
			http.Error(w, "missing scope or user", http.StatusBadRequest)
			return
		}
		name := q.Get("name")

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("scope", scope), zap.String("user", user), zap.String("client", clientID))
		clog.Debug("client connected")

		events := bus.Subscribe(scope)
		defer bus.Unsubscribe(events)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan types.ServerMessage, 16)

		// Writer goroutine
		go func() {
			defer cancel()
			for {
				var msg types.ServerMessage
				select {
				case <-ctx.Done():
					return
				case m := <-out:
					msg = m
				case evt, ok := <-events:
					if !ok {
						return
					}
					msg = types.FromEvent(evt)
				}
				if err := write(ctx, conn, msg); err != nil {
					clog.Debug("write failed", zap.Error(err))
					return
				}
			}
		}()

		// Reader loop
		for {
			readCtx, readCancel := context.WithTimeout(ctx, opts.IdleTimeout)
			_, data, err := conn.Read(readCtx)
			readCancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Debug("client disconnected")
				default:
					if !errors.Is(err, context.Canceled) {
						clog.Debug("read failed", zap.Error(err))
					}
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				send(ctx, out, types.ServerMessage{Type: "Error", Text: "bad json"})
				continue
			}

			env := dispatch.Envelope{Scope: scope, SenderID: user, SenderName: name}
			switch cm.Type {
			case "Chat", "":
				env.Text = cm.Text
			case "Command":
				env.Command, env.Args = cm.Command, cm.Args
			default:
				send(ctx, out, types.ServerMessage{Type: "Error", Text: "unknown type"})
				continue
			}

			resp, err := d.Dispatch(ctx, env)
			if err != nil {
				clog.Warn("dispatch failed", zap.Error(err))
				send(ctx, out, types.ServerMessage{Type: "Error", Text: "the draft service is unavailable"})
				continue
			}
			if msg, ok := types.FromResponse(resp); ok {
				send(ctx, out, msg)
			}
		}
	}
}

func send(ctx context.Context, out chan<- types.ServerMessage, msg types.ServerMessage) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
