package wsserver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

var errConnClosed = errors.New("connection closed")

// wsConn adapts a websocket to connreg.Conn. Writes are serialized and
// bounded by writeTimeout.
type wsConn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed atomic.Bool
}

func newWSConn(ws *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{id: uuid.NewString(), ws: ws, writeTimeout: writeTimeout}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) IsOpen() bool { return !c.closed.Load() }

func (c *wsConn) Send(ctx context.Context, payload []byte) error {
	if c.closed.Load() {
		return errConnClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	wctx := ctx
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	if err := c.ws.Write(wctx, websocket.MessageText, payload); err != nil {
		c.closed.Store(true)
		return err
	}
	return nil
}

func (c *wsConn) markClosed() { c.closed.Store(true) }
