package msgcat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedMessages(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("session.moved", map[string]any{"User": "alice", "Move": "e2 → e4"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "alice moved e2 → e4" {
		t.Fatalf("got %q", got)
	}
	if s, _ := c.Render("session.stalemate", nil); s != "The game is a stalemate" {
		t.Fatalf("stalemate text %q", s)
	}
	if _, err := c.Render("session.moved", map[string]any{"User": "x"}); err == nil {
		t.Fatal("missing field must fail")
	}
	if _, err := c.Render("nope", nil); err == nil {
		t.Fatal("unknown key must fail")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("session:\n  left: \"{{.User}} walked away\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, _ := c.Render("session.left", map[string]string{"User": "bob"})
	if got != "bob walked away" {
		t.Fatalf("override not applied: %q", got)
	}
	if got, _ := c.Render("session.resigned", map[string]string{"User": "bob"}); got != "bob resigned" {
		t.Fatalf("defaults lost: %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("session:\n  left: dup\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatal("duplicate keys across files must fail")
	}
}

func TestRejectsNonStringLeaves(t *testing.T) {
	if _, err := parseYAMLToFlat([]byte("a:\n  b: 3\n")); err == nil {
		t.Fatal("numeric leaf must be rejected")
	}
}
