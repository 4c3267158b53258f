package chess

type direction struct{ dRank, dFile int }

type movement struct {
	dirs   []direction
	slides bool
}

var (
	orthogonal = []direction{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}
	diagonal   = []direction{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	allDirs    = append(append([]direction{}, orthogonal...), diagonal...)
	knightDirs = []direction{{-1, -2}, {-2, -1}, {1, -2}, {2, -1}, {-2, 1}, {-1, 2}, {1, 2}, {2, 1}}

	movements = map[PieceType]movement{
		Rook:   {dirs: orthogonal, slides: true},
		Bishop: {dirs: diagonal, slides: true},
		Queen:  {dirs: allDirs, slides: true},
		King:   {dirs: allDirs},
		Knight: {dirs: knightDirs},
	}
)

// PseudoLegalMoves returns every move the piece at pos can make by its
// movement pattern, ignoring whether the mover's king ends up attacked.
// An empty or off-board square yields nil.
func PseudoLegalMoves(b *Board, pos Position) []Move {
	p, ok := b.Get(pos)
	if !ok {
		return nil
	}
	if p.Type == Pawn {
		return pawnMoves(b, pos, p.Color)
	}
	mv, ok := movements[p.Type]
	if !ok {
		return nil
	}
	var out []Move
	for _, d := range mv.dirs {
		to := pos.offset(d.dRank, d.dFile)
		for to.Valid() {
			occ, taken := b.Get(to)
			if taken {
				if occ.Color != p.Color {
					out = append(out, NewMove(pos, to))
				}
				break
			}
			out = append(out, NewMove(pos, to))
			if !mv.slides {
				break
			}
			to = to.offset(d.dRank, d.dFile)
		}
	}
	return out
}

func pawnMoves(b *Board, pos Position, color Color) []Move {
	forward, startRank, lastRank := 1, 2, 8
	if color == Black {
		forward, startRank, lastRank = -1, 7, 1
	}
	var out []Move
	add := func(to Position) {
		if to.Rank == lastRank {
			for _, pt := range promotionTypes {
				out = append(out, Move{Start: pos, End: to, Promotion: pt})
			}
			return
		}
		out = append(out, NewMove(pos, to))
	}

	one := pos.offset(forward, 0)
	if _, taken := b.Get(one); one.Valid() && !taken {
		add(one)
		two := pos.offset(2*forward, 0)
		if _, taken2 := b.Get(two); pos.Rank == startRank && !taken2 {
			add(two)
		}
	}
	for _, df := range [...]int{-1, 1} {
		to := pos.offset(forward, df)
		if occ, taken := b.Get(to); taken && occ.Color != color {
			add(to)
		}
	}
	return out
}

// attacks reports whether any piece of color has a pseudo-legal move ending on target.
func attacks(b *Board, color Color, target Position) bool {
	for r := 1; r <= 8; r++ {
		for f := 1; f <= 8; f++ {
			pos := Pos(r, f)
			p, ok := b.Get(pos)
			if !ok || p.Color != color {
				continue
			}
			for _, m := range PseudoLegalMoves(b, pos) {
				if m.End == target {
					return true
				}
			}
		}
	}
	return false
}
