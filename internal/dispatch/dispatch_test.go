package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/draft-bot/internal/command"
	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/internal/hub"
)

type harness struct {
	t   *testing.T
	ctx context.Context
	d   *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	h := hub.NewHub(ctx, nil)
	d := New(h, command.NewResolver("!", command.DefaultBounds), engine.Settings{Policy: engine.PolicySnake, Fallback: engine.FallbackSkip}, nil)
	return &harness{t: t, ctx: ctx, d: d}
}

func (h *harness) say(sender, text string) Response {
	h.t.Helper()
	res, err := h.d.Dispatch(h.ctx, Envelope{Scope: "general", SenderID: sender, SenderName: sender, Text: text})
	require.NoError(h.t, err)
	return res
}

func (h *harness) ok(sender, text string) Response {
	h.t.Helper()
	res := h.say(sender, text)
	require.Nil(h.t, res.Err, "%s: %s", text, res.Err)
	require.False(h.t, res.Ignored)
	return res
}

func TestDispatch_FullDraft(t *testing.T) {
	h := newHarness(t)

	res := h.ok("ann", "!startdraft 1")
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, engine.StateSetup, res.Result.Payload.(engine.Status).State)

	h.ok("ann", "!join")
	h.ok("bo", "!join")
	h.ok("ann", "!setpool Alpha Team, Alpha Two, Beta")
	h.ok("ann", "!begin")

	turn := h.ok("ann", "!status").Result.Payload.(engine.Status).Turn
	require.NotNil(t, turn)
	first, second := turn.Participant, "ann"
	if first == "ann" {
		second = "bo"
	}

	res = h.say(first, "alpha")
	require.NotNil(t, res.Err)
	assert.Equal(t, engine.KindAmbiguousMatch, res.Err.Kind)
	assert.False(t, res.Ignored, "ambiguous free text is reported")

	res = h.ok(first, "beta")
	picked := res.Result.Payload.(engine.Picked)
	assert.Equal(t, "Beta", picked.Item.Name)
	assert.True(t, engine.ContainsEvent(res.Result.Events, engine.EvtPickMade))

	res = h.ok(second, "!pick alpha two")
	assert.True(t, res.Result.Payload.(engine.Picked).Completed)
	assert.Equal(t, engine.StateComplete, res.Result.State)

	teams := h.ok("anyone", "!teams").Result.Payload.(engine.TeamsView)
	assert.Len(t, teams.Teams, 2)
}

func TestDispatch_ChatterIsIgnored(t *testing.T) {
	h := newHarness(t)

	res := h.say("ann", "good morning")
	assert.True(t, res.Ignored, "no draft in scope")

	h.ok("ann", "!startdraft 1")
	res = h.say("ann", "anyone there?")
	assert.True(t, res.Ignored, "draft not begun")

	h.ok("ann", "!join")
	h.ok("bo", "!join")
	h.ok("ann", "!setpool x, y")
	h.ok("ann", "!testmode off")
	h.ok("ann", "!begin")

	current := h.ok("ann", "!status").Result.Payload.(engine.Status).Turn.Participant
	other := "bo"
	if current == "bo" {
		other = "ann"
	}

	assert.True(t, h.say(current, "lol").Ignored, "no match")
	assert.True(t, h.say(other, "x").Ignored, "not your turn")
	assert.True(t, h.say("stranger", "x").Ignored, "not joined")

	res = h.say(other, "!pick x")
	require.NotNil(t, res.Err)
	assert.Equal(t, engine.KindNotYourTurn, res.Err.Kind)
	assert.False(t, res.Ignored, "explicit commands always answer")
}

func TestDispatch_Errors(t *testing.T) {
	h := newHarness(t)

	res := h.say("ann", "!status")
	require.NotNil(t, res.Err)
	assert.Equal(t, engine.KindNoSession, res.Err.Kind)

	res = h.say("ann", "!dance")
	require.NotNil(t, res.Err)
	assert.Equal(t, engine.KindUnknownCommand, res.Err.Kind)

	h.ok("ann", "!startdraft 2")
	res = h.say("bo", "!startdraft 2")
	require.NotNil(t, res.Err)
	assert.Equal(t, engine.KindInvalidState, res.Err.Kind)

	res = h.say("bo", "!begin")
	require.NotNil(t, res.Err)
	assert.Equal(t, engine.KindNotOwner, res.Err.Kind)
}

func TestDispatch_StructuredCommandAndFlags(t *testing.T) {
	h := newHarness(t)
	h.ok("ann", "!startdraft 1")

	res, err := h.d.Dispatch(h.ctx, Envelope{Scope: "general", SenderID: "mod", Command: "forcestop", IsAdmin: true})
	require.NoError(t, err)
	require.Nil(t, res.Err)
	assert.Equal(t, engine.StateAborted, res.Result.State)

	res, err = h.d.Dispatch(h.ctx, Envelope{Scope: "general", SenderID: "mod", Command: "startdraft", Args: "3", IsOwner: true})
	require.NoError(t, err)
	require.Nil(t, res.Err, "a finished draft does not block a new one")
}

func TestDispatch_Help(t *testing.T) {
	h := newHarness(t)
	res := h.ok("ann", "!help")
	assert.Contains(t, res.Help, "!startdraft <rounds>")
}
