package engine

import (
	"time"

	"github.com/DoyleJ11/draft-bot/pkg/types"
)

// Payload is the success half of a command result; one variant per command.
type Payload interface{ isPayload() }

type Seat struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TurnInfo struct {
	Participant string `json:"participant"`
	Name        string `json:"name"`
	Round       int    `json:"round"`
	Pick        int    `json:"pick"`
}

type SideCount struct {
	Side  string `json:"side"`
	Count int    `json:"count"`
}

type Joined struct {
	Participant Participant `json:"participant"`
	Count       int         `json:"count"`
}

type PoolSet struct {
	Size  int         `json:"size"`
	Sides []SideCount `json:"sides,omitempty"`
}

type SettingChanged struct {
	Setting string `json:"setting"`
	Value   string `json:"value"`
}

type Started struct {
	Order []Seat   `json:"order"`
	Turn  TurnInfo `json:"turn"`
}

type Picked struct {
	Participant string    `json:"participant"`
	Name        string    `json:"name"`
	Item        Item      `json:"item"`
	Round       int       `json:"round"`
	Pick        int       `json:"pick"`
	AutoPicked  bool      `json:"auto_picked,omitempty"`
	Next        *TurnInfo `json:"next,omitempty"`
	Completed   bool      `json:"completed"`
}

type TimerSet struct {
	Duration    time.Duration `json:"duration"`
	Participant string        `json:"participant"`
	Name        string        `json:"name"`
}

// Expired reports a timer fallback. Stale expiries carry nothing else.
type Expired struct {
	Stale       bool      `json:"stale"`
	Participant string    `json:"participant,omitempty"`
	Name        string    `json:"name,omitempty"`
	Fallback    Fallback  `json:"fallback,omitempty"`
	Item        string    `json:"item,omitempty"`
	Next        *TurnInfo `json:"next,omitempty"`
}

type Stopped struct {
	Snapshot types.Snapshot `json:"snapshot"`
}

type Status struct {
	State        Lifecycle `json:"state"`
	Round        int       `json:"round"`
	Rounds       int       `json:"rounds"`
	Turn         *TurnInfo `json:"turn,omitempty"`
	PicksMade    int       `json:"picks_made"`
	MaxPicks     int       `json:"max_picks"`
	Participants []Seat    `json:"participants"`
	PoolSize     int       `json:"pool_size"`
	Available    int       `json:"available"`
	Settings     Settings  `json:"settings"`
}

type PicksView struct {
	Participant string   `json:"participant"`
	Name        string   `json:"name"`
	Picks       []string `json:"picks"`
}

type PoolGroup struct {
	Side  string   `json:"side,omitempty"`
	Items []string `json:"items"`
}

type PoolView struct {
	Size      int         `json:"size"`
	Available int         `json:"available"`
	Groups    []PoolGroup `json:"groups"`
}

type OrderView struct {
	Order []Seat `json:"order"`
	// Final is false while the order is still a join-order preview.
	Final bool `json:"final"`
}

type TeamsView struct {
	Teams []Participant `json:"teams"`
}

type Exported struct {
	Snapshot types.Snapshot `json:"snapshot"`
}

func (Joined) isPayload()         {}
func (PoolSet) isPayload()        {}
func (SettingChanged) isPayload() {}
func (Started) isPayload()        {}
func (Picked) isPayload()         {}
func (TimerSet) isPayload()       {}
func (Expired) isPayload()        {}
func (Stopped) isPayload()        {}
func (Status) isPayload()         {}
func (PicksView) isPayload()      {}
func (PoolView) isPayload()       {}
func (OrderView) isPayload()      {}
func (TeamsView) isPayload()      {}
func (Exported) isPayload()       {}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func (s *Session) turnInfo() TurnInfo {
	current, ok := s.sched.Current()
	if !ok {
		return TurnInfo{}
	}
	return TurnInfo{
		Participant: current,
		Name:        s.roster.Name(current),
		Round:       s.sched.Round(),
		Pick:        s.sched.Turn() + 1,
	}
}

func (s *Session) seats(ids []string) []Seat {
	out := make([]Seat, len(ids))
	for i, id := range ids {
		out[i] = Seat{ID: id, Name: s.roster.Name(id)}
	}
	return out
}

func (s *Session) maxPicks() int {
	n := len(s.effectiveOrder()) * s.rounds
	size := s.pool.Size()
	if s.initialSize > 0 {
		size = s.initialSize
	}
	return min(n, size)
}

func (s *Session) status() Status {
	st := Status{
		State:        s.state,
		Rounds:       s.rounds,
		PicksMade:    s.roster.PickCount(),
		MaxPicks:     s.maxPicks(),
		Participants: s.seats(s.effectiveOrder()),
		PoolSize:     s.pool.Size(),
		Available:    s.pool.Available(),
		Settings:     s.settings,
	}
	if s.sched != nil {
		st.Round = s.sched.Round()
	}
	if _, ok := s.Current(); ok {
		t := s.turnInfo()
		st.Turn = &t
	}
	return st
}

func (s *Session) poolView() PoolView {
	v := PoolView{Size: s.pool.Size(), Available: s.pool.Available()}
	for side, items := range s.pool.RemainingBySide() {
		g := PoolGroup{Side: side, Items: make([]string, len(items))}
		for i, it := range items {
			g.Items[i] = it.Name
		}
		v.Groups = append(v.Groups, g)
	}
	return v
}

// teams lists participants in draft order with their picks.
func (s *Session) teams() []Participant {
	byID := map[string]Participant{}
	for _, p := range s.roster.All() {
		byID[p.ID] = p
	}
	order := s.effectiveOrder()
	out := make([]Participant, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// Snapshot is the serializable export form of the session.
func (s *Session) Snapshot() types.Snapshot {
	snap := types.Snapshot{
		SessionID:  s.id,
		Scope:      s.scope,
		Owner:      s.owner,
		State:      string(s.state),
		Policy:     string(s.settings.Policy),
		Rounds:     s.rounds,
		PoolSize:   s.pool.Size(),
		Order:      s.effectiveOrder(),
		Teams:      []types.Team{},
		Undrafted:  []string{},
		CreatedAt:  s.createdAt,
		FinishedAt: s.finishedAt,
	}
	for _, p := range s.teams() {
		snap.Teams = append(snap.Teams, types.Team{
			ID:    p.ID,
			Name:  displayName(p.ID, p.Name),
			Picks: append([]string{}, p.Picks...),
		})
	}
	for it := range s.pool.Remaining() {
		snap.Undrafted = append(snap.Undrafted, it.Name)
	}
	return snap
}
