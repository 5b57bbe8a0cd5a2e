// Package lobby runs one draft session on its own goroutine. Every command
// and every timer expiry is a message to the lobby's inbox, so the session
// only ever sees one mutation at a time.
package lobby

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/internal/export"
	"github.com/DoyleJ11/draft-bot/internal/timer"
	"github.com/DoyleJ11/draft-bot/pkg/types"
)

var ErrClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

// FromClient applies Cmd. Reply, when set, must have room for one Result.
type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

// TimerFired is sent by the turn countdown armed for Generation.
type TimerFired struct{ Generation int }

func (TimerFired) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type Result struct {
	Events  []engine.Event
	Payload engine.Payload
	Err     *engine.Error
	State   engine.Lifecycle
}

type View struct {
	SessionID       string
	Scope           string
	State           engine.Lifecycle
	Turn            int
	TimerActive     bool
	TimerGeneration int
	TimerRemaining  time.Duration
	Snapshot        types.Snapshot
}

// Sink receives every event the session emits, in order.
type Sink interface {
	Publish(events ...engine.Event)
}

type Option func(*Lobby)

func WithSink(s Sink) Option { return func(l *Lobby) { l.sink = s } }

func WithExporter(e export.Exporter) Option { return func(l *Lobby) { l.exporter = e } }

func WithLogger(log *zap.Logger) Option { return func(l *Lobby) { l.log = log } }

// WithOnFinish registers a callback run on the lobby goroutine once the
// session completes or is aborted. It must not block.
func WithOnFinish(fn func(*Lobby)) Option { return func(l *Lobby) { l.onFinish = fn } }

func WithExportTimeout(d time.Duration) Option { return func(l *Lobby) { l.exportTimeout = d } }

type Lobby struct {
	inbox   chan Msg
	session *engine.Session
	timer   *timer.Controller
	id      string
	scope   string

	sink          Sink
	exporter      export.Exporter
	log           *zap.Logger
	onFinish      func(*Lobby)
	exportTimeout time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	finished chan struct{}
}

func NewLobby(parent context.Context, session *engine.Session, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:         make(chan Msg, 64),
		session:       session,
		timer:         timer.New(),
		id:            session.ID(),
		scope:         session.Scope(),
		exporter:      export.Nop,
		log:           zap.NewNop(),
		exportTimeout: 10 * time.Second,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
		finished:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With(zap.String("scope", l.scope), zap.String("session", l.id))

	go l.loop()
	return l
}

func (l *Lobby) ID() string    { return l.id }
func (l *Lobby) Scope() string { return l.scope }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Finished is closed once the session completes or is aborted, before the
// finish callback runs.
func (l *Lobby) Finished() <-chan struct{} { return l.finished }

// Inbox exposes the mailbox to the hub and to tests.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Stop ends the lobby without waiting for queued messages.
func (l *Lobby) Stop() { l.cancel() }

// Send applies cmd and waits for its result.
func (l *Lobby) Send(ctx context.Context, cmd engine.Command) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- FromClient{Cmd: cmd, Reply: reply}:
	case <-l.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res, nil
	case <-l.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// State returns a consistent view of the session.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, ErrClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case FromClient:
				res := l.apply(msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case TimerFired:
				l.expire(msg.Generation)

			case GetState:
				msg.Reply <- l.view()

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) apply(cmd engine.Command) Result {
	wasTerminal := l.session.State().Terminal()

	events, payload, err := l.session.Apply(cmd)
	res := Result{Events: events, Payload: payload}
	if err != nil {
		res.Err = engine.AsError(err)
		if res.Err.Kind == engine.KindInternal {
			l.log.Error("session invariant violated, aborting draft",
				zap.String("command", string(cmd.Type)),
				zap.Error(err))
			res.Events = append(res.Events, l.session.Abort(time.Now().UTC())...)
		}
	}

	l.publish(res.Events)
	l.syncTimer(cmd.Type == engine.CmdTimer && res.Err == nil)
	if !wasTerminal && l.session.State().Terminal() {
		l.finish()
	}
	res.State = l.session.State()
	return res
}

func (l *Lobby) expire(gen int) {
	res := l.apply(engine.Command{Type: engine.CmdExpire, System: true, Generation: gen})
	if res.Err != nil {
		l.log.Warn("timer expiry failed", zap.Int("generation", gen), zap.Error(res.Err))
		return
	}
	if exp, ok := res.Payload.(engine.Expired); ok && exp.Stale {
		l.log.Debug("stale timer fire dropped", zap.Int("generation", gen))
		return
	}
	l.log.Info("turn timer expired", zap.Int("generation", gen), zap.String("fallback", string(l.session.Settings().Fallback)))
}

// syncTimer keeps exactly one countdown armed for the current turn while a
// per-turn duration is set. restart forces a fresh countdown for the same turn.
func (l *Lobby) syncTimer(restart bool) {
	d := l.session.Settings().Timer
	if _, ok := l.session.Current(); !ok || d <= 0 {
		l.timer.Cancel()
		return
	}
	gen := l.session.Turn()
	if !restart && l.timer.Active() && l.timer.Generation() == gen {
		return
	}
	l.timer.Start(d, gen, l.fire)
}

// fire runs on the timer goroutine.
func (l *Lobby) fire(gen int) {
	select {
	case l.inbox <- TimerFired{Generation: gen}:
	case <-l.ctx.Done():
	}
}

func (l *Lobby) finish() {
	l.timer.Cancel()
	snap := l.session.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), l.exportTimeout)
	defer cancel()
	if err := l.exporter.Export(ctx, snap); err != nil {
		l.log.Error("export failed", zap.Error(err))
	}

	l.log.Info("draft finished", zap.String("state", snap.State), zap.Int("picks", snap.PickCount()))
	close(l.finished)
	if l.onFinish != nil {
		l.onFinish(l)
	}
}

func (l *Lobby) publish(events []engine.Event) {
	if l.sink == nil || len(events) == 0 {
		return
	}
	l.sink.Publish(events...)
}

func (l *Lobby) view() View {
	return View{
		SessionID:       l.id,
		Scope:           l.scope,
		State:           l.session.State(),
		Turn:            l.session.Turn(),
		TimerActive:     l.timer.Active(),
		TimerGeneration: l.timer.Generation(),
		TimerRemaining:  l.timer.Remaining(),
		Snapshot:        l.session.Snapshot(),
	}
}

func (l *Lobby) shutdown() {
	l.timer.Cancel()
	l.cancel()
}
