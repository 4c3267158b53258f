package chess

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Color identifies a chess side.
type Color uint8

const (
	White Color = iota
	Black
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == Black {
		return "BLACK"
	}
	return "WHITE"
}

// ParseColor accepts WHITE/BLACK in any case, plus w/b.
func ParseColor(s string) (Color, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WHITE", "W":
		return White, nil
	case "BLACK", "B":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

func (c Color) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Color) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// PieceType is the kind of a piece. The zero value means "none" and is only
// meaningful as an absent promotion.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

var pieceTypeNames = [...]string{
	NoPieceType: "",
	King:        "KING",
	Queen:       "QUEEN",
	Rook:        "ROOK",
	Bishop:      "BISHOP",
	Knight:      "KNIGHT",
	Pawn:        "PAWN",
}

// promotionTypes is the order in which promotion moves are generated.
var promotionTypes = [...]PieceType{Queen, Rook, Bishop, Knight}

func (t PieceType) String() string {
	if int(t) < len(pieceTypeNames) {
		return pieceTypeNames[t]
	}
	return fmt.Sprintf("PieceType(%d)", uint8(t))
}

// IsPromotion reports whether a pawn may promote to t.
func (t PieceType) IsPromotion() bool {
	for _, p := range promotionTypes {
		if p == t {
			return true
		}
	}
	return false
}

// ParsePieceType accepts the upper-case wire names and single-letter SAN symbols.
func ParsePieceType(s string) (PieceType, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "K":
		return King, nil
	case "Q":
		return Queen, nil
	case "R":
		return Rook, nil
	case "B":
		return Bishop, nil
	case "N":
		return Knight, nil
	case "P":
		return Pawn, nil
	}
	for i, name := range pieceTypeNames {
		if name != "" && name == v {
			return PieceType(i), nil
		}
	}
	return NoPieceType, fmt.Errorf("unknown piece type %q", s)
}

func (t PieceType) MarshalJSON() ([]byte, error) {
	if t == NoPieceType {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

func (t *PieceType) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = NoPieceType
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*t = NoPieceType
		return nil
	}
	v, err := ParsePieceType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Piece is an immutable (color, type) pair.
type Piece struct {
	Color Color     `json:"color"`
	Type  PieceType `json:"type"`
}

// symbol returns the FEN letter: upper case for white.
func (p Piece) symbol() byte {
	var c byte
	switch p.Type {
	case King:
		c = 'k'
	case Queen:
		c = 'q'
	case Rook:
		c = 'r'
	case Bishop:
		c = 'b'
	case Knight:
		c = 'n'
	case Pawn:
		c = 'p'
	default:
		c = '?'
	}
	if p.Color == White {
		c -= 'a' - 'A'
	}
	return c
}

func (p Piece) String() string {
	return p.Color.String() + " " + p.Type.String()
}
