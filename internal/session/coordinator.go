// Package session turns inbound commands into validated game updates and
// fans the results out to every connection watching the game.
package session

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess-live/internal/chess"
	"github.com/park285/cheese-chess-live/internal/connreg"
	"github.com/park285/cheese-chess-live/internal/domain"
	"github.com/park285/cheese-chess-live/internal/msgcat"
	"github.com/park285/cheese-chess-live/internal/obslog"
	"github.com/park285/cheese-chess-live/internal/protocol"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// GameStore loads and saves games. GetGame returns (nil, nil) when the
// game does not exist.
type GameStore interface {
	GetGame(ctx context.Context, id int) (*domain.Game, error)
	UpdateGame(ctx context.Context, g *domain.Game) error
}

// Archiver receives every finished game.
type Archiver interface {
	SaveResult(ctx context.Context, res domain.GameResult) error
}

type Coordinator struct {
	auth    Authenticator
	games   GameStore
	reg     *connreg.Registry
	msgs    *msgcat.Catalog
	archive Archiver
	locks   *gameLocks
	log     *zap.Logger
}

type Option func(*Coordinator)

func WithArchiver(a Archiver) Option { return func(c *Coordinator) { c.archive = a } }

func WithCatalog(m *msgcat.Catalog) Option { return func(c *Coordinator) { c.msgs = m } }

func WithLogger(l *zap.Logger) Option { return func(c *Coordinator) { c.log = l } }

func New(auth Authenticator, games GameStore, reg *connreg.Registry, opts ...Option) *Coordinator {
	c := &Coordinator{auth: auth, games: games, reg: reg, locks: newGameLocks()}
	for _, opt := range opts {
		opt(c)
	}
	if c.reg == nil {
		c.reg = connreg.New()
	}
	if c.msgs == nil {
		c.msgs = msgcat.Default()
	}
	if c.log == nil {
		c.log = obslog.L()
	}
	return c
}

// Registry exposes the connection registry the coordinator broadcasts to.
func (c *Coordinator) Registry() *connreg.Registry { return c.reg }

// Handle processes one inbound frame from conn. Every failure, including a
// panic, becomes a single ERROR message to conn.
func (c *Coordinator) Handle(ctx context.Context, conn connreg.Conn, raw []byte) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("session_panic",
				zap.String("conn_id", conn.ID()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			c.replyError(ctx, conn, fail(ServerError, "internal error"))
		}
	}()

	cmd, err := protocol.Decode(raw)
	if err != nil {
		c.replyError(ctx, conn, wrap(BadRequest, err))
		return
	}
	h := &handler{c: c, ctx: ctx, conn: conn}
	if err := cmd.Accept(h); err != nil {
		c.replyError(ctx, conn, err)
		return
	}
	c.log.Debug("session_command",
		zap.String("conn_id", conn.ID()),
		zap.String("command", string(cmd.Type())),
		zap.Int("game_id", cmd.Game()),
		zap.Duration("took", time.Since(start)),
	)
}

// Disconnect forgets conn after the transport closed it.
func (c *Coordinator) Disconnect(conn connreg.Conn) {
	gid, _ := c.reg.GameOf(conn)
	if c.reg.Remove(conn) {
		c.log.Info("session_disconnect", zap.String("conn_id", conn.ID()), zap.Int("game_id", gid))
	}
}

func (c *Coordinator) authenticate(ctx context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", fail(Unauthorized, "missing auth token")
	}
	user, err := c.auth.Authenticate(ctx, token)
	if err != nil {
		if k := KindOf(err); k == Unauthorized {
			return "", wrap(Unauthorized, err)
		}
		return "", wrap(ServerError, err)
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return "", fail(Unauthorized, "token has no user")
	}
	return user, nil
}

func (c *Coordinator) load(ctx context.Context, id int) (*domain.Game, error) {
	g, err := c.games.GetGame(ctx, id)
	if err != nil {
		return nil, wrap(ServerError, err)
	}
	if g == nil {
		return nil, fail(BadRequest, "bad gameID %d", id)
	}
	return g, nil
}

func (c *Coordinator) persist(ctx context.Context, g *domain.Game) error {
	if err := c.games.UpdateGame(ctx, g); err != nil {
		return wrap(ServerError, fmt.Errorf("save game %d: %w", g.GameID, err))
	}
	return nil
}

func (c *Coordinator) text(key string, data map[string]any) string {
	s, err := c.msgs.Render(key, data)
	if err != nil {
		c.log.Warn("msgcat_render_failed", zap.String("key", key), zap.Error(err))
		return key
	}
	return s
}

func (c *Coordinator) replyError(ctx context.Context, conn connreg.Conn, err error) {
	kind := KindOf(err)
	d := detail(err)
	var msg string
	if d == "" {
		msg = c.text("error.bare", map[string]any{"Kind": kind.String()})
	} else {
		msg = c.text("error.format", map[string]any{"Kind": kind.String(), "Detail": d})
	}
	fields := []zap.Field{zap.String("conn_id", conn.ID()), zap.String("kind", kind.String()), zap.Error(err)}
	if kind == ServerError {
		c.log.Error("session_error", fields...)
	} else {
		c.log.Info("session_rejected", fields...)
	}
	c.send(ctx, conn, protocol.Error(msg))
}

// send delivers to one connection. A closed connection or failed write
// removes it from the registry.
func (c *Coordinator) send(ctx context.Context, conn connreg.Conn, msg protocol.ServerMessage) {
	payload, err := msg.Marshal()
	if err != nil {
		c.log.Error("encode_message_failed", zap.Error(err))
		return
	}
	c.deliver(ctx, conn, payload)
}

func (c *Coordinator) deliver(ctx context.Context, conn connreg.Conn, payload []byte) {
	if !conn.IsOpen() {
		c.drop(conn, "closed")
		return
	}
	if err := conn.Send(ctx, payload); err != nil {
		c.drop(conn, err.Error())
	}
}

func (c *Coordinator) drop(conn connreg.Conn, reason string) {
	if c.reg.Remove(conn) {
		c.log.Warn("broadcast_drop", zap.String("conn_id", conn.ID()), zap.String("reason", reason))
	}
}

// broadcast sends msg to every connection on gameID except skip.
func (c *Coordinator) broadcast(ctx context.Context, gameID int, msg protocol.ServerMessage, skip connreg.Conn) {
	payload, err := msg.Marshal()
	if err != nil {
		c.log.Error("encode_message_failed", zap.Error(err))
		return
	}
	for _, conn := range c.reg.ConnectionsFor(gameID) {
		if skip != nil && conn.ID() == skip.ID() {
			continue
		}
		c.deliver(ctx, conn, payload)
	}
}

func (c *Coordinator) notify(ctx context.Context, gameID int, skip connreg.Conn, key string, data map[string]any) {
	c.broadcast(ctx, gameID, protocol.Notification(c.text(key, data)), skip)
}

// finish archives a terminal game. Failures are logged only.
func (c *Coordinator) finish(ctx context.Context, g *domain.Game, result, method string) {
	c.log.Info("game_over",
		zap.Int("game_id", g.GameID),
		zap.String("result", result),
		zap.String("method", method),
	)
	if c.archive == nil {
		return
	}
	res := domain.GameResult{
		GameID:        g.GameID,
		GameName:      g.GameName,
		WhiteUsername: g.WhiteUsername,
		BlackUsername: g.BlackUsername,
		Result:        result,
		Method:        method,
		FinalFEN:      g.Game.FEN(),
		StartedAt:     g.CreatedAt,
		EndedAt:       g.UpdatedAt,
	}
	if err := c.archive.SaveResult(ctx, res); err != nil {
		c.log.Warn("archive_failed", zap.Int("game_id", g.GameID), zap.Error(err))
	}
}

func winnerToken(c chess.Color) string {
	if c == chess.Black {
		return "black"
	}
	return "white"
}

// displayName is the seated user for color, or the color when the seat is empty.
func displayName(g *domain.Game, color chess.Color) string {
	if u := g.PlayerOf(color); u != "" {
		return u
	}
	return strings.ToLower(color.String())
}
