package chess

import "errors"

var (
	ErrGameOver     = errors.New("game is already over")
	ErrNoPiece      = errors.New("no piece at start position")
	ErrWrongTurn    = errors.New("not your turn")
	ErrIllegalMove  = errors.New("illegal move")
	ErrOffBoard     = errors.New("position off board")
	ErrBadPromotion = errors.New("promotion only allowed for a pawn reaching the last rank")
)

// IsMoveRejection reports whether err means the move itself was refused
// (as opposed to the game having ended).
func IsMoveRejection(err error) bool {
	return errors.Is(err, ErrNoPiece) ||
		errors.Is(err, ErrWrongTurn) ||
		errors.Is(err, ErrIllegalMove) ||
		errors.Is(err, ErrOffBoard) ||
		errors.Is(err, ErrBadPromotion)
}
