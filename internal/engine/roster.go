package engine

import "time"

// Participant is a joined drafter and the items they claimed, in pick order.
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
	Picks    []string  `json:"picks"`
}

// Roster keeps participants in join order.
type Roster struct {
	participants []*Participant
	index        map[string]int
	locked       bool
}

func NewRoster() *Roster {
	return &Roster{index: map[string]int{}}
}

func (r *Roster) Add(id, name string, at time.Time) error {
	if r.locked {
		return newError(KindInvalidState, "the draft has already started, you cannot join now")
	}
	if _, ok := r.index[id]; ok {
		return newError(KindDuplicateJoin, "%s has already joined", displayName(id, name))
	}
	r.index[id] = len(r.participants)
	r.participants = append(r.participants, &Participant{ID: id, Name: name, JoinedAt: at})
	return nil
}

// Record appends item to the participant's picks. Validation is the caller's job.
func (r *Roster) Record(id, item string) {
	if i, ok := r.index[id]; ok {
		r.participants[i].Picks = append(r.participants[i].Picks, item)
	}
}

func (r *Roster) Lock() { r.locked = true }

func (r *Roster) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

func (r *Roster) Len() int { return len(r.participants) }

// Name returns the display name for id, falling back to the id itself.
func (r *Roster) Name(id string) string {
	if i, ok := r.index[id]; ok {
		return displayName(id, r.participants[i].Name)
	}
	return id
}

// IDs returns participant ids in join order.
func (r *Roster) IDs() []string {
	ids := make([]string, len(r.participants))
	for i, p := range r.participants {
		ids[i] = p.ID
	}
	return ids
}

func (r *Roster) PicksOf(id string) []string {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	return append([]string(nil), r.participants[i].Picks...)
}

// PickCount is the total number of picks recorded across all participants.
func (r *Roster) PickCount() int {
	n := 0
	for _, p := range r.participants {
		n += len(p.Picks)
	}
	return n
}

// All returns copies of every participant in join order.
func (r *Roster) All() []Participant {
	out := make([]Participant, len(r.participants))
	for i, p := range r.participants {
		out[i] = *p
		out[i].Picks = append([]string(nil), p.Picks...)
	}
	return out
}

func displayName(id, name string) string {
	if name != "" {
		return name
	}
	return id
}
