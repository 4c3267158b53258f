package archive

import (
	"context"
	"testing"

	"github.com/park285/cheese-chess-live/internal/domain"
)

func TestPGNResult(t *testing.T) {
	for in, want := range map[string]string{"white": "1-0", " Black ": "0-1", "draw": "1/2-1/2", "": "*"} {
		if got := PGNResult(in); got != want {
			t.Fatalf("PGNResult(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := validate(domain.GameResult{Result: "white", Method: "checkmate"}); err != nil {
		t.Fatalf("valid result rejected: %v", err)
	}
	if err := validate(domain.GameResult{Result: "nobody", Method: "checkmate"}); err == nil {
		t.Fatal("bad result token accepted")
	}
	if err := validate(domain.GameResult{Result: "draw"}); err == nil {
		t.Fatal("missing method accepted")
	}
}

func TestNilRepositoryIsNoop(t *testing.T) {
	var r *Repository
	if err := r.SaveResult(context.Background(), domain.GameResult{}); err != nil {
		t.Fatalf("nil repository: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRepository(context.Background(), " "); err == nil {
		t.Fatal("empty url must fail")
	}
}
