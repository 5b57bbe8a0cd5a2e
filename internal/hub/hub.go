// Package hub owns the scope -> lobby registry. It allows one active draft
// per scope and keeps the most recent finished draft readable until the
// next one starts.
package hub

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/internal/lobby"
)

var ErrClosed = errors.New("hub closed")

type HubMsg interface{ isHubMsg() }

type CreateResult struct {
	Lobby *lobby.Lobby
	Err   error
}

type CreateLobby struct {
	Config engine.Config
	Reply  chan CreateResult
}

// GetLobby replies with the scope's active lobby, else its finished one,
// else nil.
type GetLobby struct {
	Scope string
	Reply chan *lobby.Lobby
}

// RemoveLobby retires the active lobby for Scope if it is still the one
// identified by ID.
type RemoveLobby struct {
	Scope string
	ID    string
}

type Stats struct {
	Active   int
	Finished int
}

type GetStats struct {
	Reply chan Stats
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (GetStats) isHubMsg()    {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox    chan HubMsg
	active   map[string]*lobby.Lobby
	finished map[string]*lobby.Lobby
	opts     []lobby.Option
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewHub starts the registry. opts are applied to every lobby it creates.
func NewHub(parent context.Context, log *zap.Logger, opts ...lobby.Option) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		active:   make(map[string]*lobby.Lobby),
		finished: make(map[string]*lobby.Lobby),
		opts:     opts,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				lb, err := h.create(msg.Config)
				msg.Reply <- CreateResult{Lobby: lb, Err: err}

			case GetLobby:
				if lb := h.active[msg.Scope]; lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.finished[msg.Scope] // May be nil

			case RemoveLobby:
				lb := h.active[msg.Scope]
				if lb == nil || lb.ID() != msg.ID {
					break
				}
				delete(h.active, msg.Scope)
				h.finished[msg.Scope] = lb
				h.log.Debug("draft retired", zap.String("scope", msg.Scope), zap.String("session", msg.ID))

			case GetStats:
				msg.Reply <- Stats{Active: len(h.active), Finished: len(h.finished)}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(cfg engine.Config) (*lobby.Lobby, error) {
	if cur := h.active[cfg.Scope]; cur != nil {
		select {
		case <-cur.Finished():
			// Its RemoveLobby is still in flight.
			if old := h.finished[cfg.Scope]; old != nil {
				old.Stop()
			}
			delete(h.active, cfg.Scope)
			h.finished[cfg.Scope] = cur
		default:
			return nil, &engine.Error{Kind: engine.KindInvalidState, Message: "a draft is already running here, finish or forcestop it first"}
		}
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	session, err := engine.NewSession(cfg)
	if err != nil {
		return nil, err
	}

	if old := h.finished[cfg.Scope]; old != nil {
		old.Stop()
		delete(h.finished, cfg.Scope)
	}

	opts := append([]lobby.Option{lobby.WithLogger(h.log)}, h.opts...)
	opts = append(opts, lobby.WithOnFinish(h.retire))
	lb := lobby.NewLobby(h.ctx, session, opts...)
	h.active[cfg.Scope] = lb
	h.log.Info("draft created",
		zap.String("scope", cfg.Scope),
		zap.String("session", cfg.ID),
		zap.String("owner", cfg.Owner),
		zap.Int("rounds", cfg.Rounds))
	return lb, nil
}

// retire runs on the finishing lobby's goroutine, so it must not wait on
// the hub loop.
func (h *Hub) retire(lb *lobby.Lobby) {
	go func() {
		select {
		case h.inbox <- RemoveLobby{Scope: lb.Scope(), ID: lb.ID()}:
		case <-h.ctx.Done():
		}
	}()
}

func (h *Hub) shutdown() {
	for _, lb := range h.active {
		lb.Stop()
	}
	for _, lb := range h.finished {
		lb.Stop()
	}
	clear(h.active)
	clear(h.finished)
	h.cancel()
}

// Create starts a new draft in cfg.Scope.
func (h *Hub) Create(ctx context.Context, cfg engine.Config) (*lobby.Lobby, error) {
	reply := make(chan CreateResult, 1)
	if err := h.send(ctx, CreateLobby{Config: cfg, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Lobby, res.Err
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the lobby serving scope, or a NoSession error.
func (h *Hub) Get(ctx context.Context, scope string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Scope: scope, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case lb := <-reply:
		if lb == nil {
			return nil, &engine.Error{Kind: engine.KindNoSession, Message: "there is no draft here, use startdraft to create one"}
		}
		return lb, nil
	case <-h.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := h.send(ctx, GetStats{Reply: reply}); err != nil {
		return Stats{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-h.done:
		return Stats{}, ErrClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Shutdown stops every lobby and waits for the registry to exit.
func (h *Hub) Shutdown(ctx context.Context) error {
	if err := h.send(ctx, ShutdownHub{}); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
