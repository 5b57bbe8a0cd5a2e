package types

import "time"

// Snapshot is the export form of a draft: who drafted what, in draft order.
// It is what the export collaborators write and what draftctl reads back.
//
//	session_id: uuid of the draft instance
//	scope:      channel the draft ran in
//	state:      "setup" | "active" | "complete" | "aborted"
//	policy:     "snake" | "repeat"
//	teams:      [{id, name, picks: [item, ...]}] in draft order
//	undrafted:  items still in the pool
type Snapshot struct {
	SessionID  string    `json:"session_id" yaml:"session_id"`
	Scope      string    `json:"scope" yaml:"scope"`
	Owner      string    `json:"owner" yaml:"owner"`
	State      string    `json:"state" yaml:"state"`
	Policy     string    `json:"policy" yaml:"policy"`
	Rounds     int       `json:"rounds" yaml:"rounds"`
	PoolSize   int       `json:"pool_size" yaml:"pool_size"`
	Order      []string  `json:"order" yaml:"order"`
	Teams      []Team    `json:"teams" yaml:"teams"`
	Undrafted  []string  `json:"undrafted" yaml:"undrafted"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// Team is one participant's picks in the order they were made.
type Team struct {
	ID    string   `json:"id" yaml:"id"`
	Name  string   `json:"name" yaml:"name"`
	Picks []string `json:"picks" yaml:"picks"`
}

// PickCount sums picks across all teams.
func (s Snapshot) PickCount() int {
	n := 0
	for _, t := range s.Teams {
		n += len(t.Picks)
	}
	return n
}
