package chess

import (
	"fmt"
	"strconv"
	"strings"
)

// FEN returns the piece-placement field of a FEN string.
func (b *Board) FEN() string {
	var sb strings.Builder
	for r := 8; r >= 1; r-- {
		empty := 0
		for f := 1; f <= 8; f++ {
			p, ok := b.Get(Pos(r, f))
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(p.symbol())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if r > 1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// FEN renders the full position with no castling or en-passant rights,
// which this rules engine does not model.
func (s *GameState) FEN() string {
	turn := "w"
	if s.Turn == Black {
		turn = "b"
	}
	return s.Board.FEN() + " " + turn + " - - 0 1"
}

// ParseFEN reads the placement and side-to-move fields; the rest is ignored.
func ParseFEN(fen string) (GameState, error) {
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return GameState{}, fmt.Errorf("empty fen")
	}
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return GameState{}, fmt.Errorf("fen %q: want 8 ranks, got %d", fen, len(ranks))
	}
	var st GameState
	for i, row := range ranks {
		rank := 8 - i
		file := 1
		for _, ch := range row {
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			pt, err := ParsePieceType(string(ch))
			if err != nil {
				return GameState{}, fmt.Errorf("fen %q: %w", fen, err)
			}
			color := Black
			if ch >= 'A' && ch <= 'Z' {
				color = White
			}
			if file > 8 {
				return GameState{}, fmt.Errorf("fen %q: rank %d overflows", fen, rank)
			}
			st.Board.Set(Pos(rank, file), Piece{Color: color, Type: pt})
			file++
		}
		if file != 9 {
			return GameState{}, fmt.Errorf("fen %q: rank %d has %d files", fen, rank, file-1)
		}
	}
	if len(fields) > 1 && fields[1] == "b" {
		st.Turn = Black
	}
	return st, nil
}
