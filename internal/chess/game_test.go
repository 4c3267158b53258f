package chess

import (
	"encoding/json"
	"errors"
	"testing"
)

func uci(t *testing.T, s string) Move {
	t.Helper()
	m, err := ParseUCI(s)
	if err != nil {
		t.Fatalf("ParseUCI(%q): %v", s, err)
	}
	return m
}

func TestOpeningPawnMoves(t *testing.T) {
	g := NewGame()
	if err := g.ApplyMove(uci(t, "e2e5")); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("e2e5 should be illegal, got %v", err)
	}
	if g.Turn() != White {
		t.Fatalf("rejected move must not pass the turn")
	}
	if err := g.ApplyMove(uci(t, "e2e4")); err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	if g.Turn() != Black {
		t.Fatalf("turn should flip to black")
	}
	if err := g.ApplyMove(uci(t, "e7e5")); err != nil {
		t.Fatalf("e7e5: %v", err)
	}
	if g.Turn() != White {
		t.Fatalf("turn should flip back to white")
	}
}

func TestApplyMoveRejections(t *testing.T) {
	cases := []struct {
		name string
		move string
		want error
	}{
		{"empty square", "e4e5", ErrNoPiece},
		{"opponent piece", "e7e5", ErrWrongTurn},
		{"not a legal destination", "g1g3", ErrIllegalMove},
		{"promotion off last rank", "e2e4q", ErrBadPromotion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewGame()
			before := g.State()
			err := g.ApplyMove(uci(t, tc.move))
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
			if !IsMoveRejection(err) {
				t.Fatalf("%v should count as a move rejection", err)
			}
			if g.State() != before {
				t.Fatalf("state changed after rejected move")
			}
		})
	}
}

func TestLegalMovesNeverExposeKing(t *testing.T) {
	positions := []string{
		"4k3/8/8/8/8/8/4r3/4K3 w - - 0 1",
		"4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1",
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5Q2/PPPP1PPP/RNB1K1NR w - - 0 1",
		"8/8/8/3k4/8/2N5/3P4/3K4 b - - 0 1",
	}
	for _, fen := range positions {
		st := mustState(t, fen)
		for _, c := range []Color{White, Black} {
			for _, m := range AllLegalMoves(&st.Board, c) {
				trial := st.Board.Copy()
				if err := trial.ApplyMove(m); err != nil {
					t.Fatalf("%s: apply %v: %v", fen, m, err)
				}
				if IsInCheck(&trial, c) {
					t.Fatalf("%s: legal move %v leaves %s in check", fen, m, c)
				}
			}
		}
	}
}

func TestPinnedPieceCannotLeaveLine(t *testing.T) {
	// bishop e2 pinned by rook e7 against king e1
	st := mustState(t, "4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1")
	if moves := LegalMoves(&st.Board, MustPosition("e2")); len(moves) != 0 {
		t.Fatalf("pinned bishop should have no legal moves, got %v", moves)
	}
}

func TestFoolsMateIsCheckmate(t *testing.T) {
	g := NewGame()
	for _, mv := range []string{"f2f3", "e7e5", "g2g4", "d8h4"} {
		if err := g.ApplyMove(uci(t, mv)); err != nil {
			t.Fatalf("%s: %v", mv, err)
		}
	}
	if !g.IsInCheck(White) {
		t.Fatalf("white should be in check")
	}
	if !g.IsInCheckmate(White) {
		t.Fatalf("white should be checkmated")
	}
	if g.IsInStalemate(White) {
		t.Fatalf("checkmate is not stalemate")
	}
	if len(AllLegalMoves(&g.state.Board, White)) != 0 {
		t.Fatalf("checkmated side must have no legal moves")
	}
	if got := g.Evaluate(); got != OutcomeCheckmate {
		t.Fatalf("Evaluate: got %v", got)
	}
	g.SetOver()
	if g.Status() != Over {
		t.Fatalf("status should be OVER")
	}
	if err := g.ApplyMove(uci(t, "a2a3")); !errors.Is(err, ErrGameOver) {
		t.Fatalf("move after game over: %v", err)
	}
}

func TestStalemate(t *testing.T) {
	// black king h8 boxed in by queen g6 and king f7
	g := FromState(mustState(t, "7k/5K2/6Q1/8/8/8/8/8 b - - 0 1"))
	if g.IsInCheck(Black) {
		t.Fatalf("black is not in check")
	}
	if !g.IsInStalemate(Black) {
		t.Fatalf("black should be stalemated")
	}
	if g.IsInCheckmate(Black) {
		t.Fatalf("stalemate is not checkmate")
	}
	if got := g.Evaluate(); got != OutcomeStalemate {
		t.Fatalf("Evaluate: got %v", got)
	}
}

func TestCheckOutcome(t *testing.T) {
	g := FromState(mustState(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1"))
	if err := g.ApplyMove(uci(t, "a1a8")); err != nil {
		t.Fatalf("a1a8: %v", err)
	}
	if got := g.Evaluate(); got != OutcomeCheck {
		t.Fatalf("Evaluate: got %v", got)
	}
}

func TestPromotionApplied(t *testing.T) {
	g := FromState(mustState(t, "4k3/P7/8/8/8/8/8/4K3 w - - 0 1"))
	if err := g.ApplyMove(uci(t, "a7a8")); !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("promotion without type should be illegal, got %v", err)
	}
	if err := g.ApplyMove(uci(t, "a7a8n")); err != nil {
		t.Fatalf("a7a8n: %v", err)
	}
	b := g.Board()
	p, ok := b.Get(MustPosition("a8"))
	if !ok || p.Type != Knight || p.Color != White {
		t.Fatalf("a8 should hold a white knight, got %v %v", p, ok)
	}
}

func TestBoardCopyIsIndependent(t *testing.T) {
	b := NewStandardBoard()
	c := b.Copy()
	c.Clear(MustPosition("e2"))
	if _, ok := b.Get(MustPosition("e2")); !ok {
		t.Fatalf("clearing the copy changed the source")
	}
}

func TestBoardApplyMoveSubstitutesPromotionUnconditionally(t *testing.T) {
	b := NewStandardBoard()
	if err := b.ApplyMove(Move{Start: MustPosition("e2"), End: MustPosition("e4"), Promotion: Queen}); err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if p, _ := b.Get(MustPosition("e4")); p.Type != Queen {
		t.Fatalf("board-level promotion should substitute, got %v", p)
	}
	if _, ok := b.Get(MustPosition("e2")); ok {
		t.Fatalf("start square should be empty")
	}
}

func TestGameStateJSONRoundTrip(t *testing.T) {
	g := NewGame()
	for _, mv := range []string{"e2e4", "d7d5", "e4d5"} {
		if err := g.ApplyMove(uci(t, mv)); err != nil {
			t.Fatalf("%s: %v", mv, err)
		}
	}
	g.SetOver()
	want := g.State()
	raw, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got GameState
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\n got %s\nwant %s", got.FEN(), want.FEN())
	}
}

func TestFENRoundTrip(t *testing.T) {
	const start = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"
	st := NewGameState()
	if st.FEN() != start {
		t.Fatalf("FEN: got %q", st.FEN())
	}
	back := mustState(t, start)
	if back != st {
		t.Fatalf("ParseFEN(start) differs from standard board")
	}
	if _, err := ParseFEN("8/8/8"); err == nil {
		t.Fatalf("short fen should fail")
	}
}
