// Package protocol holds the websocket wire shapes: inbound user commands
// and outbound server messages.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-chess-live/internal/chess"
)

// CommandType is the discriminant carried in "commandType".
type CommandType string

const (
	CommandConnect  CommandType = "CONNECT"
	CommandMakeMove CommandType = "MAKE_MOVE"
	CommandLeave    CommandType = "LEAVE"
	CommandResign   CommandType = "RESIGN"
)

// ErrMalformed wraps every decode failure.
var ErrMalformed = errors.New("malformed command")

// Header is common to every command.
type Header struct {
	AuthToken string `json:"authToken"`
	GameID    int    `json:"gameID"`
}

func (h Header) Auth() string { return h.AuthToken }
func (h Header) Game() int    { return h.GameID }

// Command is one of ConnectCommand, MakeMoveCommand, LeaveCommand or
// ResignCommand. The set is closed: only this package can add variants,
// and every variant dispatches through Visitor.
type Command interface {
	Type() CommandType
	Auth() string
	Game() int
	Accept(v Visitor) error
}

// Visitor receives exactly one call per dispatched command. Adding a
// variant adds a method here, so every handler stops compiling until it
// covers the new case.
type Visitor interface {
	VisitConnect(ConnectCommand) error
	VisitMakeMove(MakeMoveCommand) error
	VisitLeave(LeaveCommand) error
	VisitResign(ResignCommand) error
}

type ConnectCommand struct{ Header }

type MakeMoveCommand struct {
	Header
	Move chess.Move
}

type LeaveCommand struct{ Header }

type ResignCommand struct{ Header }

func (ConnectCommand) Type() CommandType  { return CommandConnect }
func (MakeMoveCommand) Type() CommandType { return CommandMakeMove }
func (LeaveCommand) Type() CommandType    { return CommandLeave }
func (ResignCommand) Type() CommandType   { return CommandResign }

func (c ConnectCommand) Accept(v Visitor) error  { return v.VisitConnect(c) }
func (c MakeMoveCommand) Accept(v Visitor) error { return v.VisitMakeMove(c) }
func (c LeaveCommand) Accept(v Visitor) error    { return v.VisitLeave(c) }
func (c ResignCommand) Accept(v Visitor) error   { return v.VisitResign(c) }

type envelope struct {
	CommandType CommandType `json:"commandType"`
	AuthToken   string      `json:"authToken"`
	GameID      *int        `json:"gameID"`
	Move        *chess.Move `json:"move,omitempty"`
}

// Decode parses one inbound frame. The returned error wraps ErrMalformed.
func Decode(raw []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.GameID == nil {
		return nil, fmt.Errorf("%w: missing gameID", ErrMalformed)
	}
	h := Header{AuthToken: strings.TrimSpace(env.AuthToken), GameID: *env.GameID}
	switch CommandType(strings.ToUpper(string(env.CommandType))) {
	case CommandConnect:
		return ConnectCommand{Header: h}, nil
	case CommandMakeMove:
		if env.Move == nil {
			return nil, fmt.Errorf("%w: MAKE_MOVE without move", ErrMalformed)
		}
		if !env.Move.Start.Valid() || !env.Move.End.Valid() {
			return nil, fmt.Errorf("%w: move squares must be on the board", ErrMalformed)
		}
		return MakeMoveCommand{Header: h, Move: *env.Move}, nil
	case CommandLeave:
		return LeaveCommand{Header: h}, nil
	case CommandResign:
		return ResignCommand{Header: h}, nil
	case "":
		return nil, fmt.Errorf("%w: missing commandType", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown commandType %q", ErrMalformed, env.CommandType)
	}
}

// Encode renders a command in wire form. Used by clients and tests.
func Encode(c Command) ([]byte, error) {
	gid := c.Game()
	env := envelope{CommandType: c.Type(), AuthToken: c.Auth(), GameID: &gid}
	if mm, ok := c.(MakeMoveCommand); ok {
		m := mm.Move
		env.Move = &m
	}
	return json.Marshal(env)
}
