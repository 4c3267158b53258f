package session

import (
	"errors"
	"fmt"

	"github.com/park285/cheese-chess-live/internal/auth"
	"github.com/park285/cheese-chess-live/internal/chess"
	"github.com/park285/cheese-chess-live/internal/protocol"
	"github.com/park285/cheese-chess-live/internal/store"
)

// Kind classifies a command failure for the client.
type Kind int

const (
	ServerError Kind = iota
	BadRequest
	Unauthorized
	AlreadyTaken
	ObserverForbidden
	IllegalMove
	GameOver
)

func (k Kind) String() string {
	switch k {
	case BadRequest:
		return "bad request"
	case Unauthorized:
		return "unauthorized"
	case AlreadyTaken:
		return "already taken"
	case ObserverForbidden:
		return "observer forbidden"
	case IllegalMove:
		return "illegal move"
	case GameOver:
		return "game over"
	default:
		return "server error"
	}
}

// Error carries a Kind and the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf maps err to a Kind. Explicit *Error values win; known sentinels
// from the engine, store and verifiers map to their kinds; anything else is
// a ServerError.
func KindOf(err error) Kind {
	var se *Error
	switch {
	case err == nil:
		return ServerError
	case errors.As(err, &se):
		return se.Kind
	case errors.Is(err, chess.ErrGameOver):
		return GameOver
	case chess.IsMoveRejection(err):
		return IllegalMove
	case errors.Is(err, store.ErrUnauthorized), errors.Is(err, auth.ErrUnauthorized):
		return Unauthorized
	case errors.Is(err, store.ErrSeatTaken):
		return AlreadyTaken
	case errors.Is(err, protocol.ErrMalformed), errors.Is(err, store.ErrNotFound):
		return BadRequest
	default:
		return ServerError
	}
}

// detail is the cause text shown after the kind.
func detail(err error) string {
	var se *Error
	if errors.As(err, &se) {
		if se.Err == nil {
			return ""
		}
		return se.Err.Error()
	}
	return err.Error()
}
