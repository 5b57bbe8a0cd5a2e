package engine

// Policy decides how the order is walked from one round to the next.
type Policy string

const (
	// PolicySnake reverses direction every round: A B C, C B A, A B C ...
	PolicySnake Policy = "snake"
	// PolicyRepeat restarts the same order every round: A B C, A B C ...
	PolicyRepeat Policy = "repeat"
)

func ParsePolicy(s string) (Policy, bool) {
	switch Policy(s) {
	case PolicySnake, PolicyRepeat:
		return Policy(s), true
	}
	return "", false
}

// Cursor points at the turn holder: Round in [0, rounds), Index in
// [0, len(order)), Direction is +1 or -1.
type Cursor struct {
	Round     int `json:"round"`
	Index     int `json:"index"`
	Direction int `json:"direction"`
}

// Scheduler computes whose turn it is. Every participant starts with one
// turn per round; a turn is spent by a pick or by a skipped (expired) turn.
type Scheduler struct {
	order     []string
	rounds    int
	policy    Policy
	cursor    Cursor
	remaining map[string]int
	turn      int
	done      bool
}

func NewScheduler(order []string, rounds int, policy Policy) (*Scheduler, error) {
	if len(order) == 0 {
		return nil, newError(KindNoParticipants, "nobody has joined the draft")
	}
	if rounds < 1 {
		return nil, newError(KindInvalidArgument, "a draft needs at least one round")
	}
	if policy == "" {
		policy = PolicySnake
	}
	s := &Scheduler{
		order:     append([]string(nil), order...),
		rounds:    rounds,
		policy:    policy,
		cursor:    Cursor{Direction: 1},
		remaining: make(map[string]int, len(order)),
	}
	for _, id := range order {
		s.remaining[id] = rounds
	}
	return s, nil
}

// Current returns the turn holder; ok is false once the schedule is exhausted.
func (s *Scheduler) Current() (string, bool) {
	if s.done {
		return "", false
	}
	return s.order[s.cursor.Index], true
}

// Advance spends the current holder's turn and moves the cursor to the next
// participant that still has turns left.
func (s *Scheduler) Advance() {
	if s.done {
		return
	}
	id := s.order[s.cursor.Index]
	if s.remaining[id] > 0 {
		s.remaining[id]--
	}
	s.turn++

	s.step()
	for !s.done && s.remaining[s.order[s.cursor.Index]] == 0 {
		if s.spent() {
			s.done = true
			return
		}
		s.step()
	}
}

func (s *Scheduler) step() {
	c := &s.cursor
	c.Index += c.Direction
	if c.Index >= 0 && c.Index < len(s.order) {
		return
	}

	c.Round++
	if c.Round >= s.rounds {
		s.done = true
		return
	}
	if s.policy == PolicySnake {
		c.Direction = -c.Direction
	}
	if c.Direction > 0 {
		c.Index = 0
	} else {
		c.Index = len(s.order) - 1
	}
}

func (s *Scheduler) spent() bool {
	for _, n := range s.remaining {
		if n > 0 {
			return false
		}
	}
	return true
}

func (s *Scheduler) Done() bool     { return s.done }
func (s *Scheduler) Cursor() Cursor { return s.cursor }
func (s *Scheduler) Rounds() int    { return s.rounds }
func (s *Scheduler) Policy() Policy { return s.policy }

// Turn counts completed turns. It doubles as the generation number that timer
// expiries are checked against.
func (s *Scheduler) Turn() int { return s.turn }

// Round is the 1-based round number for display.
func (s *Scheduler) Round() int {
	if s.cursor.Round >= s.rounds {
		return s.rounds
	}
	return s.cursor.Round + 1
}

func (s *Scheduler) Remaining(id string) int { return s.remaining[id] }

func (s *Scheduler) Order() []string { return append([]string(nil), s.order...) }
