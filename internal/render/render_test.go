package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/pkg/types"
)

func TestDuration(t *testing.T) {
	cases := map[time.Duration]string{
		30 * time.Second: "30 seconds",
		time.Minute:      "1 minute",
		90 * time.Second: "90 seconds",
		2 * time.Minute:  "2 minutes",
	}
	for d, want := range cases {
		assert.Equal(t, want, Duration(d))
	}
}

func TestError(t *testing.T) {
	assert.Equal(t, "", Error(nil))

	e := &engine.Error{Kind: engine.KindAmbiguousMatch, Message: `"alpha" matches 2 items, be more specific`, Candidates: []string{"Alpha Team", "Alpha Two"}}
	assert.Equal(t, `"alpha" matches 2 items, be more specific: Alpha Team, Alpha Two`, Error(e))

	assert.Equal(t, "NoMatch", Error(&engine.Error{Kind: engine.KindNoMatch}))
}

func TestReply(t *testing.T) {
	next := &engine.TurnInfo{Participant: "b", Name: "Bo", Round: 1, Pick: 2}

	cases := []struct {
		name    string
		payload engine.Payload
		want    string
	}{
		{
			name:    "joined",
			payload: engine.Joined{Participant: engine.Participant{ID: "a", Name: "Ann"}, Count: 2},
			want:    "Ann has joined the draft! Currently 2 participants.",
		},
		{
			name:    "flat pool",
			payload: engine.PoolSet{Size: 3},
			want:    "Draft pool set with 3 items.",
		},
		{
			name:    "grouped pool",
			payload: engine.PoolSet{Size: 3, Sides: []engine.SideCount{{Side: "Chiefs", Count: 2}, {Side: "49ers", Count: 1}}},
			want:    "Draft pool set with 3 items across sides.\nBreakdown: Chiefs: 2, 49ers: 1",
		},
		{
			name:    "pick with next",
			payload: engine.Picked{Name: "Ann", Item: engine.Item{Name: "x"}, Next: next},
			want:    "Ann drafted x!\nNext up: Bo (Round 1)",
		},
		{
			name:    "last pick",
			payload: engine.Picked{Name: "Ann", Item: engine.Item{Name: "x"}, Completed: true},
			want:    "Ann drafted x!\nDraft is complete!",
		},
		{
			name:    "auto pick",
			payload: engine.Picked{Name: "Ann", Item: engine.Item{Name: "x"}, AutoPicked: true, Next: next},
			want:    "x was auto-drafted for Ann.\nNext up: Bo (Round 1)",
		},
		{
			name:    "skip",
			payload: engine.Expired{Name: "Ann", Next: next},
			want:    "Time's up for Ann! The turn is skipped.\nNext up: Bo (Round 1)",
		},
		{
			name:    "stale expiry is silent",
			payload: engine.Expired{Stale: true},
			want:    "",
		},
		{
			name:    "timer off",
			payload: engine.TimerSet{},
			want:    "Turn timer is off.",
		},
		{
			name:    "no picks",
			payload: engine.PicksView{Participant: "a"},
			want:    "You have no picks yet.",
		},
		{
			name:    "picks",
			payload: engine.PicksView{Participant: "a", Picks: []string{"x", "w"}},
			want:    "Your picks:\n1. x\n2. w",
		},
		{
			name:    "empty pool",
			payload: engine.PoolView{Size: 2},
			want:    "No remaining items in the pool.",
		},
		{
			name:    "grouped pool view",
			payload: engine.PoolView{Size: 3, Available: 3, Groups: []engine.PoolGroup{{Side: "A", Items: []string{"a1", "a2"}}, {Side: "B", Items: []string{"b1"}}}},
			want:    "Remaining items by side (3 total):\nA (2): a1, a2\nB (1): b1",
		},
		{
			name:    "provisional order",
			payload: engine.OrderView{Order: []engine.Seat{{ID: "a", Name: "Ann"}, {ID: "b"}}},
			want:    "Draft order (join order, not final):\n1. Ann\n2. b",
		},
		{
			name:    "setup status",
			payload: engine.Status{State: engine.StateSetup},
			want:    "Draft not started yet. Participants joined: none",
		},
		{
			name:    "active status",
			payload: engine.Status{State: engine.StateActive, Round: 1, Rounds: 2, Turn: next, PicksMade: 1, MaxPicks: 4},
			want:    "Draft Status:\nRound: 1/2\nCurrent turn: Bo\nTotal picks made: 1/4",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Reply(tc.payload))
		})
	}
}

func TestPoolPreviewTruncates(t *testing.T) {
	items := make([]string, 60)
	for i := range items {
		items[i] = "i"
	}
	got := Reply(engine.PoolView{Size: 60, Available: 60, Groups: []engine.PoolGroup{{Items: items}}})
	assert.Contains(t, got, "Remaining items (60 total):")
	assert.Contains(t, got, "(+10 more)")
}

func TestEvent(t *testing.T) {
	assert.Equal(t, "Bo drafted x!", Event(engine.Event{Type: engine.EvtPickMade, ParticipantName: "Bo", Item: "x"}))
	assert.Equal(t, "Next up: Bo (Round 2, pick 3)", Event(engine.Event{Type: engine.EvtTurnChanged, ParticipantName: "Bo", Round: 2, Pick: 3}))
	assert.Equal(t, "", Event(engine.Event{Type: engine.EvtPoolSet}))
}

func TestTeamsTable(t *testing.T) {
	got := TeamsTable([]types.Team{
		{Name: "Ann", Picks: []string{"x", "w"}},
		{Name: "Bo", Picks: []string{"y"}},
	})
	want := "Ann   | Bo  \n" +
		"x     | y   \n" +
		"w     |     "
	assert.Equal(t, want, got)
}
