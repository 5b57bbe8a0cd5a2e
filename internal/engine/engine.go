package engine

import (
	"math/rand/v2"
	"time"
)

type Lifecycle string

const (
	StateSetup    Lifecycle = "setup"
	StateActive   Lifecycle = "active"
	StateComplete Lifecycle = "complete"
	StateAborted  Lifecycle = "aborted"
)

// Terminal reports whether no further mutation is possible.
func (l Lifecycle) Terminal() bool { return l == StateComplete || l == StateAborted }

// Fallback is what happens when a turn timer runs out.
type Fallback string

const (
	FallbackSkip     Fallback = "skip"
	FallbackAutoPick Fallback = "autopick"
)

func ParseFallback(s string) (Fallback, bool) {
	switch Fallback(s) {
	case FallbackSkip, FallbackAutoPick:
		return Fallback(s), true
	}
	return "", false
}

type Settings struct {
	Policy   Policy        `json:"policy"`
	Fallback Fallback      `json:"fallback"`
	TestMode bool          `json:"test_mode"`
	Timer    time.Duration `json:"timer"`
}

type CommandType string

const (
	CmdJoin      CommandType = "join"
	CmdSetPool   CommandType = "setpool"
	CmdFlipOrder CommandType = "fliporder"
	CmdSnake     CommandType = "snake"
	CmdTestMode  CommandType = "testmode"
	CmdOnExpire  CommandType = "onexpire"
	CmdBegin     CommandType = "begin"
	CmdPick      CommandType = "pick"
	CmdTimer     CommandType = "timer"
	CmdStatus    CommandType = "status"
	CmdMyPicks   CommandType = "mypicks"
	CmdPool      CommandType = "pool"
	CmdOrder     CommandType = "order"
	CmdTeams     CommandType = "teams"
	CmdExport    CommandType = "export"
	CmdForceStop CommandType = "forcestop"
	CmdExpire    CommandType = "expire"
)

/*
	CmdJoin       -> EvtParticipantJoined
	CmdSetPool    -> EvtPoolSet
	CmdFlipOrder  -> EvtOrderSet
	CmdBegin      -> EvtDraftStarted -> EvtTurnChanged
	CmdPick       -> EvtPickMade -> EvtTurnChanged or EvtDraftCompleted
	CmdTimer      -> EvtTimerStarted (the lobby arms the countdown off this)
	CmdExpire     -> EvtTimerExpired -> (EvtPickMade when auto-picking) -> EvtTurnChanged or EvtDraftCompleted
	CmdForceStop  -> EvtDraftAborted
*/

// Command is one validated request against a session. Only the fields the
// command type uses are read.
type Command struct {
	Type       CommandType
	Sender     string
	SenderName string
	IsOwner    bool
	IsAdmin    bool
	// System is set only by the lobby for internally generated commands.
	System bool

	Text       string
	FreeText   bool
	Items      []string
	Sides      []SideGroup
	Enabled    bool
	Fallback   Fallback
	Duration   time.Duration
	Generation int
	At         time.Time
}

type EventType string

const (
	EvtParticipantJoined EventType = "participantJoined"
	EvtPoolSet           EventType = "poolSet"
	EvtOrderSet          EventType = "orderSet"
	EvtDraftStarted      EventType = "draftStarted"
	EvtTurnChanged       EventType = "turnChanged"
	EvtPickMade          EventType = "pickMade"
	EvtTimerStarted      EventType = "timerStarted"
	EvtTimerExpired      EventType = "timerExpired"
	EvtDraftCompleted    EventType = "draftCompleted"
	EvtDraftAborted      EventType = "draftAborted"
)

// Event carries just enough state for a transport to render it.
type Event struct {
	Type            EventType     `json:"type"`
	Scope           string        `json:"scope"`
	SessionID       string        `json:"session_id"`
	Participant     string        `json:"participant,omitempty"`
	ParticipantName string        `json:"participant_name,omitempty"`
	Item            string        `json:"item,omitempty"`
	Round           int           `json:"round,omitempty"`
	Pick            int           `json:"pick,omitempty"`
	Generation      int           `json:"generation"`
	Duration        time.Duration `json:"duration,omitempty"`
	AutoPicked      bool          `json:"auto_picked,omitempty"`
	At              time.Time     `json:"at"`
}

// Config seeds a new session.
type Config struct {
	ID        string
	Scope     string
	Owner     string
	OwnerName string
	Rounds    int
	Settings  Settings
	CreatedAt time.Time
	// Shuffle permutes the order for fliporder; defaults to math/rand/v2.
	Shuffle func([]string)
}

// Session is one draft's state machine. It is not safe for concurrent use;
// the lobby owns it and feeds it one command at a time.
type Session struct {
	id        string
	scope     string
	owner     string
	ownerName string
	rounds    int
	state     Lifecycle
	settings  Settings

	pool   *Pool
	roster *Roster
	order  []string
	// flipped is set once fliporder has fixed the order explicitly.
	flipped bool
	sched   *Scheduler

	initialSize int
	createdAt   time.Time
	finishedAt  time.Time
	shuffle     func([]string)
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.Rounds < 1 {
		return nil, newError(KindInvalidArgument, "a draft needs at least one round")
	}
	if cfg.Settings.Policy == "" {
		cfg.Settings.Policy = PolicySnake
	}
	if cfg.Settings.Fallback == "" {
		cfg.Settings.Fallback = FallbackSkip
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}
	if cfg.Shuffle == nil {
		cfg.Shuffle = func(ids []string) {
			rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		}
	}
	return &Session{
		id:        cfg.ID,
		scope:     cfg.Scope,
		owner:     cfg.Owner,
		ownerName: cfg.OwnerName,
		rounds:    cfg.Rounds,
		state:     StateSetup,
		settings:  cfg.Settings,
		pool:      NewPool(),
		roster:    NewRoster(),
		createdAt: cfg.CreatedAt,
		shuffle:   cfg.Shuffle,
	}, nil
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Scope() string         { return s.scope }
func (s *Session) Owner() string         { return s.owner }
func (s *Session) State() Lifecycle      { return s.state }
func (s *Session) Settings() Settings    { return s.settings }
func (s *Session) Rounds() int           { return s.rounds }
func (s *Session) Pool() *Pool           { return s.pool }
func (s *Session) Roster() *Roster       { return s.roster }
func (s *Session) Scheduler() *Scheduler { return s.sched }

// Turn is the current turn generation; zero before the draft begins.
func (s *Session) Turn() int {
	if s.sched == nil {
		return 0
	}
	return s.sched.Turn()
}

// Current returns the turn holder while the draft is active.
func (s *Session) Current() (string, bool) {
	if s.state != StateActive || s.sched == nil {
		return "", false
	}
	return s.sched.Current()
}

// Apply runs cmd against the session. On error the session is unchanged,
// except for KindInternal which reports a session found to be corrupt.
func (s *Session) Apply(cmd Command) ([]Event, Payload, error) {
	if cmd.At.IsZero() {
		cmd.At = time.Now().UTC()
	}

	d, ok := commandTable[cmd.Type]
	if !ok {
		return nil, nil, newError(KindUnknownCommand, "unknown command %q", cmd.Type)
	}
	if err := s.authorize(cmd, d.requires); err != nil {
		return nil, nil, err
	}
	if cmd.Type == CmdExpire && s.state != StateActive {
		// A countdown that fired after the draft ended.
		return nil, Expired{Stale: true}, nil
	}
	if !d.allows(s.state) {
		return nil, nil, s.stateError(cmd.Type)
	}

	switch cmd.Type {
	case CmdJoin:
		return s.join(cmd)
	case CmdSetPool:
		return s.setPool(cmd)
	case CmdFlipOrder:
		return s.flipOrder(cmd)
	case CmdSnake:
		if cmd.Enabled {
			s.settings.Policy = PolicySnake
		} else {
			s.settings.Policy = PolicyRepeat
		}
		return nil, SettingChanged{Setting: "policy", Value: string(s.settings.Policy)}, nil
	case CmdTestMode:
		s.settings.TestMode = cmd.Enabled
		return nil, SettingChanged{Setting: "testmode", Value: onOff(cmd.Enabled)}, nil
	case CmdOnExpire:
		if _, ok := ParseFallback(string(cmd.Fallback)); !ok {
			return nil, nil, newError(KindInvalidArgument, "expiry fallback must be skip or autopick")
		}
		s.settings.Fallback = cmd.Fallback
		return nil, SettingChanged{Setting: "onexpire", Value: string(cmd.Fallback)}, nil
	case CmdBegin:
		return s.begin(cmd)
	case CmdPick:
		return s.pick(cmd)
	case CmdTimer:
		return s.timer(cmd)
	case CmdExpire:
		return s.expire(cmd)
	case CmdForceStop:
		evts := s.finish(StateAborted, cmd.At)
		return evts, Stopped{Snapshot: s.Snapshot()}, nil
	case CmdStatus:
		return nil, s.status(), nil
	case CmdMyPicks:
		return nil, PicksView{Participant: cmd.Sender, Name: s.roster.Name(cmd.Sender), Picks: s.roster.PicksOf(cmd.Sender)}, nil
	case CmdPool:
		return nil, s.poolView(), nil
	case CmdOrder:
		return nil, OrderView{Order: s.seats(s.effectiveOrder()), Final: s.state != StateSetup || s.flipped}, nil
	case CmdTeams:
		return nil, TeamsView{Teams: s.teams()}, nil
	case CmdExport:
		return nil, Exported{Snapshot: s.Snapshot()}, nil
	}
	return nil, nil, newError(KindUnknownCommand, "unknown command %q", cmd.Type)
}

func (s *Session) join(cmd Command) ([]Event, Payload, error) {
	if err := s.roster.Add(cmd.Sender, cmd.SenderName, cmd.At); err != nil {
		return nil, nil, err
	}
	if s.flipped {
		s.order = append(s.order, cmd.Sender)
	}
	evts := []Event{s.event(EvtParticipantJoined, cmd.At, cmd.Sender)}
	p := Participant{ID: cmd.Sender, Name: cmd.SenderName, JoinedAt: cmd.At}
	return evts, Joined{Participant: p, Count: s.roster.Len()}, nil
}

func (s *Session) setPool(cmd Command) ([]Event, Payload, error) {
	var err error
	if len(cmd.Sides) > 0 {
		err = s.pool.SetSides(cmd.Sides)
	} else {
		err = s.pool.Set(cmd.Items)
	}
	if err != nil {
		return nil, nil, err
	}
	out := PoolSet{Size: s.pool.Size()}
	for _, side := range s.pool.Sides() {
		n := 0
		for it := range s.pool.Remaining() {
			if it.Side == side {
				n++
			}
		}
		out.Sides = append(out.Sides, SideCount{Side: side, Count: n})
	}
	return []Event{s.event(EvtPoolSet, cmd.At, "")}, out, nil
}

func (s *Session) flipOrder(cmd Command) ([]Event, Payload, error) {
	if s.roster.Len() == 0 {
		return nil, nil, newError(KindNoParticipants, "nobody has joined the draft yet")
	}
	order := s.roster.IDs()
	s.shuffle(order)
	s.order = order
	s.flipped = true
	return []Event{s.event(EvtOrderSet, cmd.At, "")}, OrderView{Order: s.seats(order), Final: true}, nil
}

func (s *Session) begin(cmd Command) ([]Event, Payload, error) {
	order := s.effectiveOrder()
	if len(order) == 0 {
		return nil, nil, newError(KindNoParticipants, "nobody has joined the draft")
	}
	if len(order) == 1 && !s.settings.TestMode {
		return nil, nil, newError(KindNoParticipants, "you need at least 2 participants to begin the draft")
	}
	if s.pool.Size() == 0 {
		return nil, nil, newError(KindInvalidState, "set the draft pool first")
	}
	sched, err := NewScheduler(order, s.rounds, s.settings.Policy)
	if err != nil {
		return nil, nil, err
	}

	s.sched = sched
	s.order = order
	s.pool.Lock()
	s.roster.Lock()
	s.initialSize = s.pool.Size()
	s.state = StateActive

	evts := []Event{s.event(EvtDraftStarted, cmd.At, "")}
	evts = append(evts, s.turnEvent(cmd.At))
	return evts, Started{Order: s.seats(order), Turn: s.turnInfo()}, nil
}

func (s *Session) pick(cmd Command) ([]Event, Payload, error) {
	current, ok := s.sched.Current()
	if !ok {
		return nil, nil, newError(KindInvalidState, "there is no active turn")
	}
	if cmd.Sender != current {
		if !s.settings.TestMode || !s.roster.Has(cmd.Sender) {
			return nil, nil, newError(KindNotYourTurn, "it is %s's turn", s.roster.Name(current))
		}
	}

	item, err := s.pool.FindMatch(cmd.Text)
	if err != nil {
		return nil, nil, err
	}
	return s.claim(current, item.Name, false, cmd.At)
}

// claim performs a pick for the turn holder: take, record, advance.
func (s *Session) claim(id, name string, auto bool, at time.Time) ([]Event, Payload, error) {
	item, err := s.pool.Take(name)
	if err != nil {
		return nil, nil, err
	}
	s.roster.Record(id, item.Name)

	round, pickNo := s.sched.Round(), s.sched.Turn()+1
	s.sched.Advance()

	made := s.event(EvtPickMade, at, id)
	made.Item = item.Name
	made.Round = round
	made.Pick = pickNo
	made.AutoPicked = auto
	evts := []Event{made}

	out := Picked{
		Participant: id,
		Name:        s.roster.Name(id),
		Item:        item,
		Round:       round,
		Pick:        pickNo,
		AutoPicked:  auto,
	}
	evts = append(evts, s.afterTurn(at)...)
	if s.state == StateComplete {
		out.Completed = true
	} else {
		next := s.turnInfo()
		out.Next = &next
	}
	if err := s.checkInvariants(); err != nil {
		return evts, out, err
	}
	return evts, out, nil
}

// afterTurn finishes the draft when the schedule or pool ran out, otherwise
// announces the next turn.
func (s *Session) afterTurn(at time.Time) []Event {
	if s.sched.Done() || s.pool.Available() == 0 {
		return s.finish(StateComplete, at)
	}
	return []Event{s.turnEvent(at)}
}

func (s *Session) timer(cmd Command) ([]Event, Payload, error) {
	if cmd.Duration < 0 {
		return nil, nil, newError(KindInvalidArgument, "timer duration cannot be negative")
	}
	s.settings.Timer = cmd.Duration
	current, _ := s.sched.Current()
	out := TimerSet{Duration: cmd.Duration, Participant: current, Name: s.roster.Name(current)}
	if cmd.Duration == 0 {
		return nil, out, nil
	}
	evt := s.event(EvtTimerStarted, cmd.At, current)
	evt.Duration = cmd.Duration
	return []Event{evt}, out, nil
}

// expire applies the timer fallback for the turn with the given generation.
// Expiries for any other turn are stale and change nothing.
func (s *Session) expire(cmd Command) ([]Event, Payload, error) {
	if cmd.Generation != s.sched.Turn() {
		return nil, Expired{Stale: true}, nil
	}
	current, ok := s.sched.Current()
	if !ok {
		return nil, Expired{Stale: true}, nil
	}

	expired := s.event(EvtTimerExpired, cmd.At, current)
	out := Expired{Participant: current, Name: s.roster.Name(current), Fallback: s.settings.Fallback}

	if s.settings.Fallback == FallbackAutoPick {
		if item, ok := s.pool.First(); ok {
			evts, payload, err := s.claim(current, item.Name, true, cmd.At)
			out.Item = item.Name
			if p, ok := payload.(Picked); ok {
				out.Next = p.Next
			}
			return append([]Event{expired}, evts...), out, err
		}
	}

	s.sched.Advance()
	evts := append([]Event{expired}, s.afterTurn(cmd.At)...)
	if s.state == StateActive {
		next := s.turnInfo()
		out.Next = &next
	}
	return evts, out, s.checkInvariants()
}

func (s *Session) finish(state Lifecycle, at time.Time) []Event {
	s.state = state
	s.finishedAt = at
	s.pool.Lock()
	s.roster.Lock()
	if state == StateAborted {
		return []Event{s.event(EvtDraftAborted, at, "")}
	}
	return []Event{s.event(EvtDraftCompleted, at, "")}
}

// Abort ends the session regardless of who asked; used when the session is
// found to be corrupt.
func (s *Session) Abort(at time.Time) []Event {
	if s.state.Terminal() {
		return nil
	}
	return s.finish(StateAborted, at)
}

// checkInvariants verifies pool/roster bookkeeping after a mutation.
func (s *Session) checkInvariants() error {
	if s.state == StateSetup {
		return nil
	}
	picks := s.roster.PickCount()
	if picks+s.pool.Available() != s.initialSize {
		return newError(KindInternal, "pool accounting broken: %d picks + %d available != %d", picks, s.pool.Available(), s.initialSize)
	}
	if picks != s.pool.Taken() {
		return newError(KindInternal, "pool accounting broken: %d picks recorded but %d items taken", picks, s.pool.Taken())
	}
	if current, ok := s.Current(); ok && s.sched.Remaining(current) <= 0 {
		return newError(KindInternal, "turn assigned to %s who has no picks left", current)
	}
	return nil
}

func (s *Session) stateError(t CommandType) error {
	switch s.state {
	case StateSetup:
		return newError(KindInvalidState, "the draft has not begun yet")
	case StateActive:
		if t == CmdJoin {
			return newError(KindInvalidState, "the draft has already started, you cannot join now")
		}
		return newError(KindInvalidState, "the draft has already begun")
	default:
		return newError(KindInvalidState, "the draft is %s", s.state)
	}
}

// effectiveOrder is the explicit (flipped or frozen) order, else join order.
// A draft stopped before it began keeps reporting join order.
func (s *Session) effectiveOrder() []string {
	if s.flipped || s.sched != nil {
		return append([]string(nil), s.order...)
	}
	return s.roster.IDs()
}

func (s *Session) event(t EventType, at time.Time, participant string) Event {
	e := Event{
		Type:        t,
		Scope:       s.scope,
		SessionID:   s.id,
		Participant: participant,
		Generation:  s.Turn(),
		At:          at,
	}
	if participant != "" {
		e.ParticipantName = s.roster.Name(participant)
	}
	return e
}

func (s *Session) turnEvent(at time.Time) Event {
	current, _ := s.sched.Current()
	e := s.event(EvtTurnChanged, at, current)
	e.Round = s.sched.Round()
	e.Pick = s.sched.Turn() + 1
	return e
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
