package types

// Client -> Server (websocket /ws?scope=&user=&name=)
// Chat:
//   text: string            // "!pick Alpha Team", or free text during your turn
//
// Command:
//   command: string         // "join" | "setpool" | "begin" | "pick" | "timer" | ...
//   args: string            // same text that would follow the command in chat
//
// Client -> Server (webhook POST /scopes/{scope}/messages)
// Envelope:
//   sender_id: string
//   sender_name: string
//   text | command + args
//   is_owner: boolean       // set by a trusted chat bridge only
//   is_admin: boolean

// Server -> Client
// Reply:
//   command: string
//   session_id: string
//   state: "setup" | "active" | "complete" | "aborted"
//   text: string            // ready to post in chat
//   payload: object         // one shape per command, see internal/engine
//
// Event:
//   text: string            // "" for events that are not announced
//   event: { type, scope, session_id, participant, participant_name,
//            item, round, pick, generation, duration, auto_picked, at }
//   type: "participantJoined" | "poolSet" | "orderSet" | "draftStarted" |
//         "turnChanged" | "pickMade" | "timerStarted" | "timerExpired" |
//         "draftCompleted" | "draftAborted"
//
// Error:
//   text: string
//   error: { kind, message, candidates } // candidates only for AmbiguousMatch
//
// Free text that does not name an available item, or is sent out of turn,
// gets no reply at all.
