package wsserver

import (
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-chess-live/internal/chess"
	"github.com/park285/cheese-chess-live/internal/connreg"
	"github.com/park285/cheese-chess-live/internal/domain"
	"github.com/park285/cheese-chess-live/internal/protocol"
	"github.com/park285/cheese-chess-live/internal/session"
	"github.com/park285/cheese-chess-live/internal/store"
)

type tokenAuth map[string]string

func (a tokenAuth) Authenticate(_ context.Context, token string) (string, error) {
	if u, ok := a[token]; ok {
		return u, nil
	}
	return "", store.ErrUnauthorized
}

type testStore interface {
	session.GameStore
	GameReader
}

func seededStore() *store.MemoryGameStore {
	games := store.NewMemoryGameStore()
	games.Put(&domain.Game{GameID: 42, GameName: "live", WhiteUsername: "A", BlackUsername: "B", Game: chess.NewGameState(), Version: 1})
	return games
}

func startServer(t *testing.T, games testStore) (*httptest.Server, *Server) {
	t.Helper()
	coord := session.New(tokenAuth{"ta": "A", "tb": "B"}, games, connreg.New())
	s := New(coord, games, Options{WriteTimeout: 2 * time.Second})
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		hs.Close()
		s.Wait()
	})
	return hs, s
}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryGameStore, *Server) {
	t.Helper()
	games := seededStore()
	hs, s := startServer(t, games)
	return hs, games, s
}

func dial(t *testing.T, ctx context.Context, hs *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func write(t *testing.T, ctx context.Context, c *websocket.Conn, cmd protocol.Command) {
	t.Helper()
	raw, err := protocol.Encode(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Write(ctx, websocket.MessageText, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, ctx context.Context, c *websocket.Conn) protocol.ServerMessage {
	t.Helper()
	var m protocol.ServerMessage
	if err := wsjson.Read(ctx, c, &m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestWebsocketGameFlow(t *testing.T) {
	hs, games, s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dial(t, ctx, hs)
	write(t, ctx, a, protocol.ConnectCommand{Header: protocol.Header{AuthToken: "ta", GameID: 42}})
	if m := read(t, ctx, a); m.ServerMessageType != protocol.MessageLoadGame || m.Game.GameName != "live" {
		t.Fatalf("A connect: %+v", m)
	}

	b := dial(t, ctx, hs)
	write(t, ctx, b, protocol.ConnectCommand{Header: protocol.Header{AuthToken: "tb", GameID: 42}})
	if m := read(t, ctx, b); m.ServerMessageType != protocol.MessageLoadGame {
		t.Fatalf("B connect: %+v", m)
	}
	if m := read(t, ctx, a); m.Message != "B joined as black" {
		t.Fatalf("A should hear B join: %+v", m)
	}

	write(t, ctx, a, protocol.MakeMoveCommand{
		Header: protocol.Header{AuthToken: "ta", GameID: 42},
		Move:   chess.NewMove(chess.MustPosition("e2"), chess.MustPosition("e4")),
	})
	if m := read(t, ctx, a); m.ServerMessageType != protocol.MessageLoadGame || m.Game.Game.Turn != chess.Black {
		t.Fatalf("A after move: %+v", m)
	}
	if m := read(t, ctx, b); m.ServerMessageType != protocol.MessageLoadGame {
		t.Fatalf("B snapshot: %+v", m)
	}
	if m := read(t, ctx, b); m.Message != "A moved e2 → e4" {
		t.Fatalf("B notice: %+v", m)
	}

	write(t, ctx, b, protocol.MakeMoveCommand{
		Header: protocol.Header{AuthToken: "tb", GameID: 42},
		Move:   chess.NewMove(chess.MustPosition("e7"), chess.MustPosition("e4")),
	})
	if m := read(t, ctx, b); m.ServerMessageType != protocol.MessageError || !strings.HasPrefix(m.ErrorMessage, "Error: ") {
		t.Fatalf("illegal move should be an ERROR: %+v", m)
	}

	g, _ := games.GetGame(ctx, 42)
	if g.Version != 2 {
		t.Fatalf("version = %d, want 2", g.Version)
	}

	_ = b.Close(websocket.StatusNormalClosure, "")
	deadline := time.Now().Add(2 * time.Second)
	for s.coord.Registry().Count(42) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("closed socket still registered (%d)", s.coord.Registry().Count(42))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHTTPViews(t *testing.T) {
	hs, _, _ := newTestServer(t)

	resp, err := http.Get(hs.URL + "/healthz")
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %v %v", resp, err)
	}
	resp.Body.Close()

	resp, err = http.Get(hs.URL + "/games/42")
	if err != nil {
		t.Fatal(err)
	}
	var g domain.Game
	if err := json.NewDecoder(resp.Body).Decode(&g); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if g.GameID != 42 || g.WhiteUsername != "A" || g.Game.Turn != chess.White {
		t.Fatalf("snapshot %+v", g)
	}

	resp, err = http.Get(hs.URL + "/games/42/moves?from=e2")
	if err != nil {
		t.Fatal(err)
	}
	var mv movesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mv); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if mv.From != "e2" || strings.Join(mv.Destinations, ",") != "e3,e4" {
		t.Fatalf("moves from e2 = %+v", mv)
	}

	resp, err = http.Get(hs.URL + "/games/42/board.png?perspective=black&from=g1")
	if err != nil {
		t.Fatal(err)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	if _, err := png.Decode(resp.Body); err != nil {
		t.Fatalf("decode png: %v", err)
	}
	resp.Body.Close()

	for path, want := range map[string]int{
		"/games/7":                http.StatusNotFound,
		"/games/abc":              http.StatusBadRequest,
		"/games/42/moves?from=z9": http.StatusBadRequest,
		"/games/42/moves":         http.StatusBadRequest,
	} {
		resp, err := http.Get(hs.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("%s: status %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestOriginPatterns(t *testing.T) {
	s := &Server{opts: Options{AllowedOrigins: []string{"https://play.example.com", "localhost:3000"}}}
	got := s.originPatterns()
	if len(got) != 2 || got[0] != "play.example.com" || got[1] != "localhost:3000" {
		t.Fatalf("patterns = %v", got)
	}
	s.opts.AllowedOrigins = nil
	if got := s.originPatterns(); len(got) != 1 || got[0] != "*" {
		t.Fatalf("default patterns = %v", got)
	}
}

// gatedStore parks UpdateGame until release is closed and records the
// context error it saw when it resumed.
type gatedStore struct {
	*store.MemoryGameStore
	entered chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (g *gatedStore) UpdateGame(ctx context.Context, game *domain.Game) error {
	close(g.entered)
	<-g.release
	g.ctxErr <- ctx.Err()
	return g.MemoryGameStore.UpdateGame(ctx, game)
}

func TestShutdownDrainsRunningCommand(t *testing.T) {
	games := &gatedStore{
		MemoryGameStore: seededStore(),
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
		ctxErr:          make(chan error, 1),
	}
	hs, s := startServer(t, games)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dial(t, ctx, hs)
	write(t, ctx, a, protocol.MakeMoveCommand{
		Header: protocol.Header{AuthToken: "ta", GameID: 42},
		Move:   chess.NewMove(chess.MustPosition("e2"), chess.MustPosition("e4")),
	})
	select {
	case <-games.entered:
	case <-ctx.Done():
		t.Fatal("move never reached the store")
	}

	s.Close()
	close(games.release)
	s.Wait()

	if err := <-games.ctxErr; err != nil {
		t.Fatalf("running command saw %v after Close", err)
	}
	g, _ := games.GetGame(ctx, 42)
	if g.Version != 2 || g.Game.Turn != chess.Black {
		t.Fatalf("move not persisted: version=%d turn=%s", g.Version, g.Game.Turn)
	}
}

func TestFramesFromOneConnectionRunInOrder(t *testing.T) {
	hs, games, s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a := dial(t, ctx, hs)
	write(t, ctx, a, protocol.ConnectCommand{Header: protocol.Header{AuthToken: "ta", GameID: 42}})
	read(t, ctx, a)

	b := dial(t, ctx, hs)
	hdr := protocol.Header{AuthToken: "tb", GameID: 42}
	write(t, ctx, b, protocol.ConnectCommand{Header: hdr})
	write(t, ctx, b, protocol.LeaveCommand{Header: hdr})

	if m := read(t, ctx, a); m.Message != "B joined as black" {
		t.Fatalf("first notice %+v", m)
	}
	if m := read(t, ctx, a); m.Message != "B left the game" {
		t.Fatalf("second notice %+v", m)
	}
	if n := s.coord.Registry().Count(42); n != 1 {
		t.Fatalf("registered connections = %d, want 1", n)
	}
	g, _ := games.GetGame(ctx, 42)
	if g.BlackUsername != "" || g.WhiteUsername != "A" {
		t.Fatalf("seats after leave: white=%q black=%q", g.WhiteUsername, g.BlackUsername)
	}
}
