// Package dispatch routes chat envelopes from any transport to the draft in
// their scope. It is the only place that knows startdraft creates a session
// and every other command goes to an existing one.
package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-bot/internal/command"
	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/internal/hub"
	"github.com/DoyleJ11/draft-bot/internal/lobby"
)

// Envelope is one inbound chat message. Transports that deliver structured
// commands set Command and Args; chat transports set Text.
type Envelope struct {
	Scope      string    `json:"scope"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
	Text       string    `json:"text,omitempty"`
	Command    string    `json:"command,omitempty"`
	Args       string    `json:"args,omitempty"`
	IsOwner    bool      `json:"is_owner,omitempty"`
	IsAdmin    bool      `json:"is_admin,omitempty"`
	ReceivedAt time.Time `json:"received_at,omitempty"`
}

// Response is what the sender should see. Ignored responses get no reply.
type Response struct {
	Name      string
	SessionID string
	Result    lobby.Result
	Help      string
	Err       *engine.Error
	Ignored   bool
}

// Registry is the part of the hub the dispatcher needs.
type Registry interface {
	Create(ctx context.Context, cfg engine.Config) (*lobby.Lobby, error)
	Get(ctx context.Context, scope string) (*lobby.Lobby, error)
}

type Dispatcher struct {
	registry Registry
	resolver command.Resolver
	settings engine.Settings
	log      *zap.Logger
}

var _ Registry = (*hub.Hub)(nil)

func New(reg Registry, resolver command.Resolver, settings engine.Settings, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{registry: reg, resolver: resolver, settings: settings, log: log}
}

func (d *Dispatcher) Prefix() string { return d.resolver.Prefix }

// Dispatch resolves env and applies it. The returned error is reserved for
// infrastructure failures (closed hub, canceled context); command failures
// come back in Response.Err.
func (d *Dispatcher) Dispatch(ctx context.Context, env Envelope) (Response, error) {
	if env.ReceivedAt.IsZero() {
		env.ReceivedAt = time.Now().UTC()
	}

	var (
		req command.Request
		err error
	)
	if env.Command != "" {
		req, err = d.resolver.Build(env.Command, env.Args)
	} else {
		req, err = d.resolver.Resolve(env.Text)
	}
	if err != nil {
		return Response{Name: env.Command, Err: engine.AsError(err)}, nil
	}

	switch req.Name {
	case command.NameHelp:
		return Response{Name: req.Name, Help: command.HelpText(d.resolver.Prefix)}, nil
	case command.NameStartDraft:
		return d.startDraft(ctx, env, req)
	}

	lb, err := d.registry.Get(ctx, env.Scope)
	if err != nil {
		if e := domainError(err); e != nil {
			return d.respond(req, Response{Name: req.Name, Err: e}), nil
		}
		return Response{}, err
	}

	cmd := req.Command
	cmd.Sender = env.SenderID
	cmd.SenderName = env.SenderName
	cmd.IsOwner = env.IsOwner
	cmd.IsAdmin = env.IsAdmin
	cmd.At = env.ReceivedAt

	res, err := lb.Send(ctx, cmd)
	if err != nil {
		d.log.Warn("lobby send failed", zap.String("scope", env.Scope), zap.String("command", req.Name), zap.Error(err))
		if errors.Is(err, lobby.ErrClosed) {
			// Replaced between lookup and send.
			return d.respond(req, Response{Name: req.Name, Err: &engine.Error{Kind: engine.KindNoSession, Message: "that draft has ended"}}), nil
		}
		return Response{}, err
	}
	return d.respond(req, Response{Name: req.Name, SessionID: lb.ID(), Result: res, Err: res.Err}), nil
}

func (d *Dispatcher) startDraft(ctx context.Context, env Envelope, req command.Request) (Response, error) {
	lb, err := d.registry.Create(ctx, engine.Config{
		Scope:     env.Scope,
		Owner:     env.SenderID,
		OwnerName: env.SenderName,
		Rounds:    req.Rounds,
		Settings:  d.settings,
		CreatedAt: env.ReceivedAt,
	})
	if err != nil {
		if e := domainError(err); e != nil {
			return Response{Name: req.Name, Err: e}, nil
		}
		return Response{}, err
	}
	status, err := lb.Send(ctx, engine.Command{Type: engine.CmdStatus, Sender: env.SenderID, At: env.ReceivedAt})
	if err != nil {
		return Response{}, err
	}
	return Response{Name: req.Name, SessionID: lb.ID(), Result: status}, nil
}

// respond applies the chatter policy: free text that is not a usable pick
// stays quiet.
func (d *Dispatcher) respond(req command.Request, r Response) Response {
	if !req.FreeText || r.Err == nil {
		return r
	}
	switch r.Err.Kind {
	case engine.KindNoMatch, engine.KindNotYourTurn, engine.KindInvalidState, engine.KindNoSession:
		r.Ignored = true
	}
	return r
}

func domainError(err error) *engine.Error {
	var e *engine.Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
