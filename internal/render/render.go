// Package render turns command results and events into chat text.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/pkg/types"
)

const poolPreview = 50

func Error(e *engine.Error) string {
	if e == nil {
		return ""
	}
	msg := e.Error()
	if len(e.Candidates) > 0 && e.Kind == engine.KindAmbiguousMatch {
		msg += ": " + strings.Join(e.Candidates, ", ")
	}
	return msg
}

// Duration prints whole minutes as minutes and anything else in seconds.
func Duration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs > 0 && secs%60 == 0 {
		m := secs / 60
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return fmt.Sprintf("%d seconds", secs)
}

func Reply(p engine.Payload) string {
	switch v := p.(type) {
	case engine.Joined:
		return fmt.Sprintf("%s has joined the draft! Currently %d participants.", name(v.Participant.ID, v.Participant.Name), v.Count)

	case engine.PoolSet:
		if len(v.Sides) == 0 {
			return fmt.Sprintf("Draft pool set with %d items.", v.Size)
		}
		parts := make([]string, len(v.Sides))
		for i, s := range v.Sides {
			parts[i] = fmt.Sprintf("%s: %d", s.Side, s.Count)
		}
		return fmt.Sprintf("Draft pool set with %d items across sides.\nBreakdown: %s", v.Size, strings.Join(parts, ", "))

	case engine.SettingChanged:
		return fmt.Sprintf("%s is now %s.", v.Setting, v.Value)

	case engine.OrderView:
		if len(v.Order) == 0 {
			return "Nobody has joined yet."
		}
		title := "Draft order"
		if !v.Final {
			title = "Draft order (join order, not final)"
		}
		return title + ":\n" + numbered(seatNames(v.Order))

	case engine.Started:
		return fmt.Sprintf("Draft has begun!\nOrder: %s\nCurrent turn: %s (Round %d)",
			strings.Join(seatNames(v.Order), ", "), v.Turn.Name, v.Turn.Round)

	case engine.Picked:
		var b strings.Builder
		if v.AutoPicked {
			fmt.Fprintf(&b, "%s was auto-drafted for %s.", v.Item.Name, v.Name)
		} else {
			fmt.Fprintf(&b, "%s drafted %s!", v.Name, v.Item.Name)
		}
		b.WriteString(next(v.Completed, v.Next))
		return b.String()

	case engine.TimerSet:
		if v.Duration == 0 {
			return "Turn timer is off."
		}
		return fmt.Sprintf("Timer started for %s: %s. Every turn now gets %s.", v.Name, Duration(v.Duration), Duration(v.Duration))

	case engine.Expired:
		if v.Stale {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, "Time's up for %s!", v.Name)
		if v.Item != "" {
			fmt.Fprintf(&b, " Auto-drafted %s.", v.Item)
		} else {
			b.WriteString(" The turn is skipped.")
		}
		b.WriteString(next(v.Next == nil, v.Next))
		return b.String()

	case engine.Stopped:
		return fmt.Sprintf("Draft stopped after %d picks.", v.Snapshot.PickCount())

	case engine.Status:
		return status(v)

	case engine.PicksView:
		if len(v.Picks) == 0 {
			return "You have no picks yet."
		}
		return "Your picks:\n" + numbered(v.Picks)

	case engine.PoolView:
		return pool(v)

	case engine.TeamsView:
		if len(v.Teams) == 0 {
			return "No one has joined the draft yet."
		}
		teams := make([]types.Team, len(v.Teams))
		for i, p := range v.Teams {
			teams[i] = types.Team{ID: p.ID, Name: name(p.ID, p.Name), Picks: p.Picks}
		}
		return "Teams:\n```" + TeamsTable(teams) + "```"

	case engine.Exported:
		return fmt.Sprintf("Snapshot of %s: %d picks by %d participants.", v.Snapshot.SessionID, v.Snapshot.PickCount(), len(v.Snapshot.Teams))
	}
	return ""
}

// Event renders the announcement transports post for an event, or "" for
// events that only matter to machines.
func Event(e engine.Event) string {
	switch e.Type {
	case engine.EvtDraftStarted:
		return "The draft has begun!"
	case engine.EvtTurnChanged:
		return fmt.Sprintf("Next up: %s (Round %d, pick %d)", e.ParticipantName, e.Round, e.Pick)
	case engine.EvtPickMade:
		if e.AutoPicked {
			return fmt.Sprintf("%s was auto-drafted for %s.", e.Item, e.ParticipantName)
		}
		return fmt.Sprintf("%s drafted %s!", e.ParticipantName, e.Item)
	case engine.EvtTimerStarted:
		return fmt.Sprintf("Timer started for %s: %s.", e.ParticipantName, Duration(e.Duration))
	case engine.EvtTimerExpired:
		return fmt.Sprintf("Time's up for %s!", e.ParticipantName)
	case engine.EvtDraftCompleted:
		return "Draft is complete!"
	case engine.EvtDraftAborted:
		return "The draft was stopped."
	}
	return ""
}

// TeamsTable lays picks out side by side, one column per team.
func TeamsTable(teams []types.Team) string {
	widths := make([]int, len(teams))
	rows := 0
	for i, t := range teams {
		w := len(t.Name)
		for _, p := range t.Picks {
			w = max(w, len(p))
		}
		widths[i] = w + 2
		rows = max(rows, len(t.Picks))
	}

	lines := make([]string, 0, rows+1)
	cells := make([]string, len(teams))
	for i, t := range teams {
		cells[i] = pad(t.Name, widths[i])
	}
	lines = append(lines, strings.Join(cells, " | "))
	for r := range rows {
		for i, t := range teams {
			cell := ""
			if r < len(t.Picks) {
				cell = t.Picks[r]
			}
			cells[i] = pad(cell, widths[i])
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return strings.Join(lines, "\n")
}

func status(v engine.Status) string {
	switch v.State {
	case engine.StateSetup:
		names := seatNames(v.Participants)
		joined := "none"
		if len(names) > 0 {
			joined = strings.Join(names, ", ")
		}
		return fmt.Sprintf("Draft not started yet. Participants joined: %s", joined)
	case engine.StateComplete:
		return fmt.Sprintf("Draft is complete. %d/%d picks made.", v.PicksMade, v.MaxPicks)
	case engine.StateAborted:
		return fmt.Sprintf("Draft was stopped. %d picks made.", v.PicksMade)
	}
	turn := "nobody"
	if v.Turn != nil {
		turn = v.Turn.Name
	}
	return fmt.Sprintf("Draft Status:\nRound: %d/%d\nCurrent turn: %s\nTotal picks made: %d/%d",
		v.Round, v.Rounds, turn, v.PicksMade, v.MaxPicks)
}

func pool(v engine.PoolView) string {
	if v.Available == 0 {
		return "No remaining items in the pool."
	}
	if len(v.Groups) == 1 && v.Groups[0].Side == "" {
		items := v.Groups[0].Items
		return fmt.Sprintf("Remaining items (%d total):\n%s", v.Available, preview(items, poolPreview))
	}
	lines := make([]string, len(v.Groups))
	for i, g := range v.Groups {
		lines[i] = fmt.Sprintf("%s (%d): %s", g.Side, len(g.Items), preview(g.Items, 10))
	}
	return fmt.Sprintf("Remaining items by side (%d total):\n%s", v.Available, strings.Join(lines, "\n"))
}

func preview(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(items[:limit], ", "), len(items)-limit)
}

func next(done bool, t *engine.TurnInfo) string {
	if done || t == nil {
		return "\nDraft is complete!"
	}
	return fmt.Sprintf("\nNext up: %s (Round %d)", t.Name, t.Round)
}

func numbered(lines []string) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, l)
	}
	return b.String()
}

func seatNames(seats []engine.Seat) []string {
	out := make([]string, len(seats))
	for i, s := range seats {
		out[i] = name(s.ID, s.Name)
	}
	return out
}

func name(id, display string) string {
	if display != "" {
		return display
	}
	return id
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
