// Package wsserver exposes the coordinator over websockets and serves
// read-only game views over HTTP.
package wsserver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/cheese-chess-live/internal/domain"
	"github.com/park285/cheese-chess-live/internal/obslog"
	"github.com/park285/cheese-chess-live/internal/session"
)

const (
	readLimit  = 64 << 10
	frameQueue = 32
)

// GameReader is the read side of the game store.
type GameReader interface {
	GetGame(ctx context.Context, id int) (*domain.Game, error)
}

type Options struct {
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type Server struct {
	coord  *session.Coordinator
	games  GameReader
	opts   Options
	engine *gin.Engine
	log    *zap.Logger

	// base stops the read loops. Commands never see its cancellation.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(coord *session.Coordinator, games GameReader, opts Options) *Server {
	base, cancel := context.WithCancel(context.Background())
	s := &Server{coord: coord, games: games, opts: opts, log: obslog.L(), base: base, cancel: cancel}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/ws", s.serveWS)
	games := r.Group("/games/:id")
	games.GET("", s.getGame)
	games.GET("/moves", s.getMoves)
	games.GET("/board.png", s.getBoard)
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.opts.AllowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.opts.AllowedOrigins
	}
	return cfg
}

// originPatterns turns allowed origins into host patterns for the
// websocket handshake.
func (s *Server) originPatterns() []string {
	if len(s.opts.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	out := make([]string, 0, len(s.opts.AllowedOrigins))
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/healthz" {
			return
		}
		s.log.Debug("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) serveWS(c *gin.Context) {
	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns:  s.originPatterns(),
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.log.Warn("ws_accept_failed", zap.Error(err))
		return
	}
	ws.SetReadLimit(readLimit)
	conn := newWSConn(ws, s.opts.WriteTimeout)
	s.log.Info("ws_connect", zap.String("conn_id", conn.ID()), zap.String("remote", c.Request.RemoteAddr))

	frames := make(chan []byte, frameQueue)
	s.wg.Add(1)
	go s.dispatch(conn, frames)

	readCtx, cancel := context.WithCancel(s.base)
	defer cancel()
	for {
		_, data, err := ws.Read(readCtx)
		if err != nil {
			s.logClose(conn, err)
			break
		}
		select {
		case frames <- data:
		case <-readCtx.Done():
		}
	}
	conn.markClosed()
	close(frames)
	_ = ws.Close(websocket.StatusNormalClosure, "")
}

// dispatch runs one connection's frames in arrival order. Commands run on
// a context without cancellation so shutdown drains them instead of
// aborting a half-applied update. Disconnect happens after the last frame
// so a queued CONNECT cannot re-register a closed socket.
func (s *Server) dispatch(conn *wsConn, frames <-chan []byte) {
	defer s.wg.Done()
	ctx := context.WithoutCancel(s.base)
	for frame := range frames {
		s.coord.Handle(ctx, conn, frame)
	}
	s.coord.Disconnect(conn)
}

func (s *Server) logClose(conn *wsConn, err error) {
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
		s.log.Info("ws_close", zap.String("conn_id", conn.ID()), zap.Int("status", int(status)))
		return
	}
	s.log.Warn("ws_read_failed", zap.String("conn_id", conn.ID()), zap.Error(err))
}

// Run serves on addr until ctx is done, then drains in-flight commands.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("http_listen", zap.String("addr", addr))

	select {
	case err := <-errCh:
		s.cancel()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops reading from every websocket. Queued and running commands
// still complete; use Wait to block on them.
func (s *Server) Close() { s.cancel() }

// Wait blocks until every connection has drained its queued commands.
// Call it after Close or Run returns.
func (s *Server) Wait() { s.wg.Wait() }

func trimParam(c *gin.Context, k string) string { return strings.TrimSpace(c.Param(k)) }
