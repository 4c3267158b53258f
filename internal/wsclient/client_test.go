package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-chess-live/internal/protocol"
)

// flakyServer drops the first connection right after its first frame and
// answers a NOTIFICATION echoing the command type on later connections.
func flakyServer(t *testing.T) (*httptest.Server, *atomic.Int32, chan string) {
	t.Helper()
	var conns atomic.Int32
	seen := make(chan string, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		n := conns.Add(1)
		ctx := r.Context()
		for {
			_, data, err := ws.Read(ctx)
			if err != nil {
				return
			}
			cmd, err := protocol.Decode(data)
			if err != nil {
				continue
			}
			seen <- string(cmd.Type())
			if n == 1 {
				_ = ws.Close(websocket.StatusGoingAway, "bye")
				return
			}
			_ = wsjson.Write(ctx, ws, protocol.Notification("got "+string(cmd.Type())))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns, seen
}

func TestReconnectReplaysJoin(t *testing.T) {
	srv, conns, seen := flakyServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	c := New(url, WithReconnect(5), WithPingInterval(0))
	var mu sync.Mutex
	var got []string
	c.OnMessage(func(m protocol.ServerMessage) {
		mu.Lock()
		got = append(got, m.Message)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	join := protocol.ConnectCommand{Header: protocol.Header{AuthToken: "t", GameID: 1}}
	if err := c.Send(ctx, join); err != nil {
		t.Fatalf("Send: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case typ := <-seen:
			if typ != "CONNECT" {
				t.Fatalf("server saw %s, want CONNECT", typ)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for CONNECT #%d", i+1)
		}
	}
	if conns.Load() != 2 {
		t.Fatalf("expected a second connection, got %d", conns.Load())
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no message after reconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	if got[0] != "got CONNECT" {
		t.Fatalf("first message %q", got[0])
	}
	mu.Unlock()

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.State() != StateDisconnected {
		t.Fatalf("state after close = %s", c.State())
	}
}

func TestSendBeforeConnect(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws")
	err := c.Send(context.Background(), protocol.LeaveCommand{Header: protocol.Header{AuthToken: "t", GameID: 1}})
	if err != ErrNotConnected {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}
}
