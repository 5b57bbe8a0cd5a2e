package types

import (
	"github.com/DoyleJ11/draft-bot/internal/dispatch"
	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/internal/render"
)

// ClientMessage is one inbound websocket frame.
type ClientMessage struct {
	Type    string `json:"type"` // "Chat" | "Command"
	Text    string `json:"text,omitempty"`
	Command string `json:"command,omitempty"`
	Args    string `json:"args,omitempty"`
}

type ServerMessage struct {
	Type      string         `json:"type"` // "Reply" | "Event" | "Error"
	Command   string         `json:"command,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	State     string         `json:"state,omitempty"`
	Text      string         `json:"text,omitempty"`
	Payload   engine.Payload `json:"payload,omitempty"`
	Event     *engine.Event  `json:"event,omitempty"`
	Error     *engine.Error  `json:"error,omitempty"`
}

// FromResponse builds the reply for a dispatched command. ok is false for
// ignored chatter, which gets no reply.
func FromResponse(r dispatch.Response) (ServerMessage, bool) {
	if r.Ignored {
		return ServerMessage{}, false
	}
	if r.Err != nil {
		return ServerMessage{Type: "Error", Command: r.Name, SessionID: r.SessionID, Text: render.Error(r.Err), Error: r.Err}, true
	}
	if r.Help != "" {
		return ServerMessage{Type: "Reply", Command: r.Name, Text: r.Help}, true
	}
	return ServerMessage{
		Type:      "Reply",
		Command:   r.Name,
		SessionID: r.SessionID,
		State:     string(r.Result.State),
		Text:      render.Reply(r.Result.Payload),
		Payload:   r.Result.Payload,
	}, true
}

func FromEvent(e engine.Event) ServerMessage {
	return ServerMessage{Type: "Event", SessionID: e.SessionID, Text: render.Event(e), Event: &e}
}
