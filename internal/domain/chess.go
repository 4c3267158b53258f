package domain

import (
	"strings"
	"time"

	"github.com/park285/cheese-chess-live/internal/chess"
)

// Game is the stored record of one match: seats, name and engine state.
// Version increases on every successful update.
type Game struct {
	GameID        int             `json:"gameID"`
	WhiteUsername string          `json:"whiteUsername,omitempty"`
	BlackUsername string          `json:"blackUsername,omitempty"`
	GameName      string          `json:"gameName"`
	Game          chess.GameState `json:"game"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Role is how a user relates to a game.
type Role string

const (
	RoleWhite    Role = "white"
	RoleBlack    Role = "black"
	RoleObserver Role = "observer"
)

// RoleOf compares username with the seated players.
func (g *Game) RoleOf(username string) Role {
	u := strings.TrimSpace(username)
	switch {
	case u == "":
		return RoleObserver
	case u == g.WhiteUsername:
		return RoleWhite
	case u == g.BlackUsername:
		return RoleBlack
	default:
		return RoleObserver
	}
}

// Seated reports whether username holds either seat.
func (g *Game) Seated(username string) bool { return g.RoleOf(username) != RoleObserver }

// ColorOf returns the color username plays, if seated.
func (g *Game) ColorOf(username string) (chess.Color, bool) {
	switch g.RoleOf(username) {
	case RoleWhite:
		return chess.White, true
	case RoleBlack:
		return chess.Black, true
	}
	return chess.White, false
}

// PlayerOf returns the username seated on color.
func (g *Game) PlayerOf(c chess.Color) string {
	if c == chess.Black {
		return g.BlackUsername
	}
	return g.WhiteUsername
}

// Vacate clears every seat username holds and leaves the other seat alone.
// It reports whether anything changed.
func (g *Game) Vacate(username string) bool {
	u := strings.TrimSpace(username)
	if u == "" {
		return false
	}
	changed := false
	if g.WhiteUsername == u {
		g.WhiteUsername = ""
		changed = true
	}
	if g.BlackUsername == u {
		g.BlackUsername = ""
		changed = true
	}
	return changed
}

// Clone returns a copy; GameState is a value so nothing is shared.
func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

// GameResult is the archived summary of a finished game.
type GameResult struct {
	GameID        int
	GameName      string
	WhiteUsername string
	BlackUsername string
	Result        string // "white" | "black" | "draw"
	Method        string // "checkmate" | "stalemate" | "resignation"
	FinalFEN      string
	StartedAt     time.Time
	EndedAt       time.Time
}
