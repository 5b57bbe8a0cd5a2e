package command

import (
	"fmt"
	"strings"

	"github.com/DoyleJ11/draft-bot/internal/engine"
)

type HelpEntry struct {
	Name    string `json:"name"`
	Usage   string `json:"usage"`
	Summary string `json:"summary"`
	// Who is "anyone", "participant", "owner" or "owner or admin".
	Who string `json:"who"`
}

var helpText = []struct{ name, usage, summary string }{
	{NameStartDraft, "startdraft <rounds>", "create a draft in this channel; you become its owner"},
	{"join", "join", "join the draft before it begins"},
	{"setpool", "setpool a, b, c | Side: a, b | Side2: c", "set the items to draft, optionally grouped by side"},
	{"fliporder", "fliporder", "shuffle the draft order"},
	{"snake", "snake on|off", "reverse the order every round (on) or repeat it (off)"},
	{"testmode", "testmode on|off", "allow one-person drafts and picking on behalf of the turn holder"},
	{"onexpire", "onexpire skip|autopick", "what happens when a turn timer runs out"},
	{"begin", "begin", "lock the order and pool and start picking"},
	{"pick", "pick <item>", "claim an item; typing a unique part of its name also works"},
	{"timer", "timer <30s|1m|90|off>", "give every turn a countdown"},
	{"status", "status", "round, turn and pick counts"},
	{"mypicks", "mypicks", "list your picks"},
	{"pool", "pool", "list items still available"},
	{"order", "order", "show the draft order"},
	{"teams", "teams", "show everyone's picks"},
	{"export", "export", "the draft as a snapshot"},
	{"forcestop", "forcestop", "end the draft now"},
	{NameHelp, "help", "this list"},
}

// Help lists every command with who may run it.
func Help() []HelpEntry {
	out := make([]HelpEntry, 0, len(helpText))
	for _, h := range helpText {
		out = append(out, HelpEntry{Name: h.name, Usage: h.usage, Summary: h.summary, Who: who(h.name)})
	}
	return out
}

func who(name string) string {
	need, ok := engine.Requires(engine.CommandType(name))
	if !ok {
		return "anyone"
	}
	switch {
	case need&engine.CapOwner != 0 && need&engine.CapAdmin != 0:
		return "owner or admin"
	case need&engine.CapOwner != 0:
		return "owner"
	case need&engine.CapParticipant != 0:
		return "participant"
	}
	return "anyone"
}

// HelpText renders Help for a chat reply.
func HelpText(prefix string) string {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, h := range Help() {
		fmt.Fprintf(&b, "%s%s: %s", prefix, h.Usage, h.Summary)
		if h.Who != "anyone" {
			fmt.Fprintf(&b, " (%s)", h.Who)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Anything else you type during your turn is matched against the pool.")
	return b.String()
}
