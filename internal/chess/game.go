package chess

import "fmt"

// Status is the engine lifecycle; Over is terminal.
type Status string

const (
	InProgress Status = "IN_PROGRESS"
	Over       Status = "OVER"
)

// GameState is the persisted position: board, side to move and terminal flag.
type GameState struct {
	Board Board `json:"board"`
	Turn  Color `json:"teamTurn"`
	Over  bool  `json:"gameOver"`
}

// NewGameState returns the standard start position with white to move.
func NewGameState() GameState {
	return GameState{Board: NewStandardBoard(), Turn: White}
}

// IsInCheck reports whether color's king is attacked on b.
// A board without that king is never in check.
func IsInCheck(b *Board, color Color) bool {
	king, ok := b.FindKing(color)
	if !ok {
		return false
	}
	return attacks(b, color.Opponent(), king)
}

// LegalMoves filters the pseudo-legal moves of the piece at pos, dropping
// any move that leaves its own king attacked. Each candidate is tried on a
// private copy of b.
func LegalMoves(b *Board, pos Position) []Move {
	p, ok := b.Get(pos)
	if !ok {
		return nil
	}
	var out []Move
	for _, m := range PseudoLegalMoves(b, pos) {
		trial := b.Copy()
		if err := trial.ApplyMove(m); err != nil {
			continue
		}
		if !IsInCheck(&trial, p.Color) {
			out = append(out, m)
		}
	}
	return out
}

// AllLegalMoves is the union of LegalMoves over every piece of color.
func AllLegalMoves(b *Board, color Color) []Move {
	var out []Move
	b.Each(func(pos Position, p Piece) {
		if p.Color == color {
			out = append(out, LegalMoves(b, pos)...)
		}
	})
	return out
}

func hasLegalMove(b *Board, color Color) bool {
	for r := 1; r <= 8; r++ {
		for f := 1; f <= 8; f++ {
			pos := Pos(r, f)
			if p, ok := b.Get(pos); ok && p.Color == color && len(LegalMoves(b, pos)) > 0 {
				return true
			}
		}
	}
	return false
}

// Game is the rules engine over a single GameState.
type Game struct {
	state GameState
}

// NewGame starts from the standard position.
func NewGame() *Game { return &Game{state: NewGameState()} }

// FromState wraps an existing state; the state is copied.
func FromState(s GameState) *Game { return &Game{state: s} }

// State returns a copy of the current state.
func (g *Game) State() GameState { return g.state }

// Board returns a copy of the current board.
func (g *Game) Board() Board { return g.state.Board }

func (g *Game) Turn() Color { return g.state.Turn }

func (g *Game) Status() Status {
	if g.state.Over {
		return Over
	}
	return InProgress
}

// SetOver marks the game terminal. It cannot be undone.
func (g *Game) SetOver() { g.state.Over = true }

func (g *Game) LegalMoves(pos Position) []Move { return LegalMoves(&g.state.Board, pos) }

func (g *Game) IsInCheck(color Color) bool { return IsInCheck(&g.state.Board, color) }

func (g *Game) IsInCheckmate(color Color) bool {
	return g.IsInCheck(color) && !hasLegalMove(&g.state.Board, color)
}

func (g *Game) IsInStalemate(color Color) bool {
	return !g.IsInCheck(color) && !hasLegalMove(&g.state.Board, color)
}

// ApplyMove validates m against the side to move and the legal move set,
// then applies it and passes the turn. On error the state is unchanged.
func (g *Game) ApplyMove(m Move) error {
	if g.state.Over {
		return ErrGameOver
	}
	if !m.Start.Valid() || !m.End.Valid() {
		return fmt.Errorf("%w: %s", ErrOffBoard, m)
	}
	p, ok := g.state.Board.Get(m.Start)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPiece, m.Start)
	}
	if p.Color != g.state.Turn {
		return fmt.Errorf("%w: %s to move", ErrWrongTurn, g.state.Turn)
	}
	if m.Promotion != NoPieceType && (p.Type != Pawn || !m.Promotion.IsPromotion() || !isLastRank(m.End, p.Color)) {
		return fmt.Errorf("%w: %s", ErrBadPromotion, m)
	}
	legal := false
	for _, cand := range g.LegalMoves(m.Start) {
		if cand == m {
			legal = true
			break
		}
	}
	if !legal {
		return fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	if err := g.state.Board.ApplyMove(m); err != nil {
		return err
	}
	g.state.Turn = g.state.Turn.Opponent()
	return nil
}

func isLastRank(pos Position, color Color) bool {
	if color == White {
		return pos.Rank == 8
	}
	return pos.Rank == 1
}

// Outcome classifies the position for the side to move.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCheck
	OutcomeCheckmate
	OutcomeStalemate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCheck:
		return "check"
	case OutcomeCheckmate:
		return "checkmate"
	case OutcomeStalemate:
		return "stalemate"
	default:
		return "none"
	}
}

// Evaluate returns the outcome for the side to move. Checkmate and
// stalemate are terminal; check is informational.
func (g *Game) Evaluate() Outcome {
	c := g.state.Turn
	inCheck := g.IsInCheck(c)
	if hasLegalMove(&g.state.Board, c) {
		if inCheck {
			return OutcomeCheck
		}
		return OutcomeNone
	}
	if inCheck {
		return OutcomeCheckmate
	}
	return OutcomeStalemate
}
