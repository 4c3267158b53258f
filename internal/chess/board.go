package chess

import (
	"encoding/json"
	"fmt"
)

// Board is an 8x8 grid. squares[rank-1][file-1]; a Piece with NoPieceType is
// an empty square. Board is a plain value: assignment copies every square.
type Board struct {
	squares [8][8]Piece
}

var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewStandardBoard returns the initial chess position.
func NewStandardBoard() Board {
	var b Board
	for f := 1; f <= 8; f++ {
		b.Set(Pos(1, f), Piece{Color: White, Type: backRank[f-1]})
		b.Set(Pos(2, f), Piece{Color: White, Type: Pawn})
		b.Set(Pos(7, f), Piece{Color: Black, Type: Pawn})
		b.Set(Pos(8, f), Piece{Color: Black, Type: backRank[f-1]})
	}
	return b
}

// Get returns the piece at pos and whether the square is occupied.
// Off-board positions report empty.
func (b *Board) Get(pos Position) (Piece, bool) {
	if !pos.Valid() {
		return Piece{}, false
	}
	p := b.squares[pos.Rank-1][pos.File-1]
	return p, p.Type != NoPieceType
}

// Set places p on pos, replacing any occupant. Off-board positions are ignored.
func (b *Board) Set(pos Position, p Piece) {
	if !pos.Valid() {
		return
	}
	b.squares[pos.Rank-1][pos.File-1] = p
}

// Clear empties pos.
func (b *Board) Clear(pos Position) { b.Set(pos, Piece{}) }

// Copy returns an independent board.
func (b *Board) Copy() Board { return *b }

// ApplyMove moves the piece at m.Start to m.End, overwriting any occupant.
// A pawn carrying a promotion type is replaced by that type wherever it lands;
// callers that care about the far rank validate before calling.
func (b *Board) ApplyMove(m Move) error {
	p, ok := b.Get(m.Start)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPiece, m.Start)
	}
	if !m.End.Valid() {
		return fmt.Errorf("%w: %s", ErrOffBoard, m.End)
	}
	if p.Type == Pawn && m.Promotion != NoPieceType {
		p.Type = m.Promotion
	}
	b.Clear(m.Start)
	b.Set(m.End, p)
	return nil
}

// FindKing returns the square of color's king.
func (b *Board) FindKing(color Color) (Position, bool) {
	for r := 1; r <= 8; r++ {
		for f := 1; f <= 8; f++ {
			pos := Pos(r, f)
			if p, ok := b.Get(pos); ok && p.Type == King && p.Color == color {
				return pos, true
			}
		}
	}
	return Position{}, false
}

// Each calls fn for every occupied square, rank 1 first.
func (b *Board) Each(fn func(pos Position, p Piece)) {
	for r := 1; r <= 8; r++ {
		for f := 1; f <= 8; f++ {
			pos := Pos(r, f)
			if p, ok := b.Get(pos); ok {
				fn(pos, p)
			}
		}
	}
}

// MarshalJSON encodes the board as 8 ranks (rank 1 first) of 8 squares,
// each null or {"color","type"}.
func (b Board) MarshalJSON() ([]byte, error) {
	var grid [8][8]*Piece
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p := b.squares[r][f]; p.Type != NoPieceType {
				cp := p
				grid[r][f] = &cp
			}
		}
	}
	return json.Marshal(grid)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var grid [8][8]*Piece
	if err := json.Unmarshal(data, &grid); err != nil {
		return err
	}
	var nb Board
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p := grid[r][f]; p != nil {
				if p.Type == NoPieceType {
					return fmt.Errorf("square %s: piece without type", Pos(r+1, f+1))
				}
				nb.squares[r][f] = *p
			}
		}
	}
	*b = nb
	return nil
}
