package chess

import (
	"fmt"
	"strings"
)

// Position is a square addressed by rank and file, both 1..8.
// File 1 is the a-file.
type Position struct {
	Rank int `json:"rank"`
	File int `json:"file"`
}

// Pos is shorthand for Position{rank, file}.
func Pos(rank, file int) Position { return Position{Rank: rank, File: file} }

// Valid reports whether p is on the board.
func (p Position) Valid() bool {
	return p.Rank >= 1 && p.Rank <= 8 && p.File >= 1 && p.File <= 8
}

func (p Position) offset(dRank, dFile int) Position {
	return Position{Rank: p.Rank + dRank, File: p.File + dFile}
}

// String renders algebraic form, e.g. "e4". Off-board positions render as "(r,f)".
func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Rank, p.File)
	}
	return string([]byte{byte('a' + p.File - 1), byte('0' + p.Rank)})
}

// ParsePosition parses algebraic form ("e4", case-insensitive).
func ParsePosition(s string) (Position, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) != 2 {
		return Position{}, fmt.Errorf("bad square %q", s)
	}
	p := Position{Rank: int(v[1] - '0'), File: int(v[0]-'a') + 1}
	if !p.Valid() {
		return Position{}, fmt.Errorf("bad square %q", s)
	}
	return p, nil
}

// MustPosition is ParsePosition for constants and tests.
func MustPosition(s string) Position {
	p, err := ParsePosition(s)
	if err != nil {
		panic(err)
	}
	return p
}
