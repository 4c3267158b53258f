package chess

import (
	"fmt"
	"strings"
)

// Move relocates the piece at Start to End. Promotion is NoPieceType unless
// a pawn reaches the far rank.
type Move struct {
	Start     Position  `json:"start"`
	End       Position  `json:"end"`
	Promotion PieceType `json:"promotion,omitempty"`
}

// NewMove builds a non-promoting move.
func NewMove(start, end Position) Move { return Move{Start: start, End: end} }

// String renders "e2 → e4", with "=Q" style suffix for promotions.
func (m Move) String() string {
	s := m.Start.String() + " → " + m.End.String()
	if m.Promotion != NoPieceType {
		p := Piece{Color: Black, Type: m.Promotion}
		s += "=" + string(p.symbol()-('a'-'A'))
	}
	return s
}

// UCI renders coordinate notation, e.g. "e7e8q".
func (m Move) UCI() string {
	s := m.Start.String() + m.End.String()
	if m.Promotion != NoPieceType {
		s += string(Piece{Color: Black, Type: m.Promotion}.symbol())
	}
	return s
}

// ParseUCI parses coordinate notation ("e2e4", "e7e8q").
func ParseUCI(s string) (Move, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) != 4 && len(v) != 5 {
		return Move{}, fmt.Errorf("bad move %q", s)
	}
	from, err := ParsePosition(v[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParsePosition(v[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{Start: from, End: to}
	if len(v) == 5 {
		pt, err := ParsePieceType(v[4:])
		if err != nil || !pt.IsPromotion() {
			return Move{}, fmt.Errorf("bad promotion in %q", s)
		}
		m.Promotion = pt
	}
	return m, nil
}
