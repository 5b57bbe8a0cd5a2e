package engine

import (
	"errors"
	"fmt"
)

// Kind classifies a failed command so the transport can react to it without
// parsing messages.
type Kind string

const (
	KindInvalidState    Kind = "InvalidState"
	KindNotOwner        Kind = "NotOwner"
	KindNotAdmin        Kind = "NotAdmin"
	KindDuplicateJoin   Kind = "DuplicateJoin"
	KindDuplicateItem   Kind = "DuplicateItem"
	KindNoParticipants  Kind = "NoParticipants"
	KindNoMatch         Kind = "NoMatch"
	KindAmbiguousMatch  Kind = "AmbiguousMatch"
	KindAlreadyTaken    Kind = "AlreadyTaken"
	KindNotYourTurn     Kind = "NotYourTurn"
	KindInvalidArgument Kind = "InvalidArgument"
	KindNoSession       Kind = "NoSession"
	KindUnknownCommand  Kind = "UnknownCommand"
	KindInternal        Kind = "Internal"
)

// Error is the failure half of every command result.
type Error struct {
	Kind       Kind     `json:"kind"`
	Message    string   `json:"message"`
	Candidates []string `json:"candidates,omitempty"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches on kind only, so errors.Is(err, ErrNoMatch) holds for any
// NoMatch error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrNotOwner        = &Error{Kind: KindNotOwner}
	ErrNotAdmin        = &Error{Kind: KindNotAdmin}
	ErrDuplicateJoin   = &Error{Kind: KindDuplicateJoin}
	ErrDuplicateItem   = &Error{Kind: KindDuplicateItem}
	ErrNoParticipants  = &Error{Kind: KindNoParticipants}
	ErrNoMatch         = &Error{Kind: KindNoMatch}
	ErrAmbiguousMatch  = &Error{Kind: KindAmbiguousMatch}
	ErrAlreadyTaken    = &Error{Kind: KindAlreadyTaken}
	ErrNotYourTurn     = &Error{Kind: KindNotYourTurn}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNoSession       = &Error{Kind: KindNoSession}
	ErrUnknownCommand  = &Error{Kind: KindUnknownCommand}
	ErrInternal        = &Error{Kind: KindInternal}
)

// AsError converts any error into an *Error, treating foreign errors as
// internal failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}
