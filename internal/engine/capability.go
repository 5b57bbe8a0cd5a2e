package engine

import "slices"

// Capability is a bit set; a command declares the capabilities that may run
// it and the sender needs any one of them.
type Capability uint8

const (
	CapParticipant Capability = 1 << iota
	CapOwner
	CapAdmin
	CapSystem
)

type descriptor struct {
	requires Capability // zero means anyone
	states   []Lifecycle
}

func (d descriptor) allows(state Lifecycle) bool { return slices.Contains(d.states, state) }

var (
	setupOnly  = []Lifecycle{StateSetup}
	activeOnly = []Lifecycle{StateActive}
	live       = []Lifecycle{StateSetup, StateActive}
	anyState   = []Lifecycle{StateSetup, StateActive, StateComplete, StateAborted}
)

var commandTable = map[CommandType]descriptor{
	CmdJoin:      {states: setupOnly},
	CmdSetPool:   {requires: CapOwner, states: setupOnly},
	CmdFlipOrder: {requires: CapOwner, states: setupOnly},
	CmdSnake:     {requires: CapOwner, states: setupOnly},
	CmdTestMode:  {requires: CapOwner, states: setupOnly},
	CmdOnExpire:  {requires: CapOwner, states: live},
	CmdBegin:     {requires: CapOwner, states: setupOnly},
	CmdPick:      {requires: CapParticipant, states: activeOnly},
	CmdTimer:     {requires: CapOwner, states: activeOnly},
	CmdStatus:    {states: anyState},
	CmdMyPicks:   {states: anyState},
	CmdPool:      {states: anyState},
	CmdOrder:     {states: anyState},
	CmdTeams:     {states: anyState},
	CmdExport:    {states: anyState},
	CmdForceStop: {requires: CapOwner | CapAdmin, states: live},
	CmdExpire:    {requires: CapSystem, states: activeOnly},
}

// Requires reports the capabilities a command needs, for help output.
func Requires(t CommandType) (Capability, bool) {
	d, ok := commandTable[t]
	return d.requires, ok
}

func (s *Session) capabilities(cmd Command) Capability {
	var c Capability
	if s.roster.Has(cmd.Sender) {
		c |= CapParticipant
	}
	if cmd.IsOwner || (cmd.Sender != "" && cmd.Sender == s.owner) {
		c |= CapOwner
	}
	if cmd.IsAdmin {
		c |= CapAdmin
	}
	if cmd.System {
		c |= CapSystem
	}
	return c
}

func (s *Session) authorize(cmd Command, need Capability) error {
	if need == 0 || s.capabilities(cmd)&need != 0 {
		return nil
	}
	switch {
	case need&CapOwner != 0 && need&CapAdmin != 0:
		return newError(KindNotOwner, "only the draft owner or an admin can %s", cmd.Type)
	case need&CapOwner != 0:
		return newError(KindNotOwner, "only the draft owner can %s", cmd.Type)
	case need&CapAdmin != 0:
		return newError(KindNotAdmin, "only an admin can %s", cmd.Type)
	case need&CapParticipant != 0:
		return newError(KindNotYourTurn, "you have not joined this draft")
	default:
		return newError(KindUnknownCommand, "unknown command %q", cmd.Type)
	}
}
