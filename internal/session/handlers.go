package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess-live/internal/chess"
	"github.com/park285/cheese-chess-live/internal/connreg"
	"github.com/park285/cheese-chess-live/internal/protocol"
)

// handler runs one command for one connection.
type handler struct {
	c    *Coordinator
	ctx  context.Context
	conn connreg.Conn
}

var _ protocol.Visitor = (*handler)(nil)

func (h *handler) VisitConnect(cmd protocol.ConnectCommand) error {
	c := h.c
	user, err := c.authenticate(h.ctx, cmd.Auth())
	if err != nil {
		return err
	}
	unlock := c.locks.Lock(cmd.Game())
	defer unlock()

	g, err := c.load(h.ctx, cmd.Game())
	if err != nil {
		return err
	}
	c.reg.Add(g.GameID, user, h.conn)
	c.send(h.ctx, h.conn, protocol.LoadGame(g))

	role := g.RoleOf(user)
	c.log.Info("session_connect",
		zap.String("conn_id", h.conn.ID()),
		zap.Int("game_id", g.GameID),
		zap.String("user", user),
		zap.String("role", string(role)),
	)
	c.notify(h.ctx, g.GameID, h.conn, "session.joined", map[string]any{"User": user, "Role": string(role)})
	return nil
}

func (h *handler) VisitMakeMove(cmd protocol.MakeMoveCommand) error {
	c := h.c
	user, err := c.authenticate(h.ctx, cmd.Auth())
	if err != nil {
		return err
	}
	unlock := c.locks.Lock(cmd.Game())
	defer unlock()

	g, err := c.load(h.ctx, cmd.Game())
	if err != nil {
		return err
	}
	if !g.Seated(user) {
		return fail(ObserverForbidden, "observers cannot move")
	}
	if g.Game.Over {
		return fail(GameOver, "game is already over")
	}
	if g.PlayerOf(g.Game.Turn) != user {
		return fail(IllegalMove, "not your turn")
	}

	game := chess.FromState(g.Game)
	if err := game.ApplyMove(cmd.Move); err != nil {
		return wrap(KindOf(err), err)
	}
	// 종료 판정을 저장 전에 끝내서 종국 상태가 한 번의 쓰기로 나가게 한다.
	toMove := game.Turn()
	outcome := game.Evaluate()
	if outcome == chess.OutcomeCheckmate || outcome == chess.OutcomeStalemate {
		game.SetOver()
	}
	g.Game = game.State()
	if err := c.persist(h.ctx, g); err != nil {
		return err
	}
	c.log.Info("session_move",
		zap.Int("game_id", g.GameID),
		zap.String("user", user),
		zap.String("move", cmd.Move.UCI()),
		zap.Stringer("outcome", outcome),
	)

	c.broadcast(h.ctx, g.GameID, protocol.LoadGame(g), nil)
	c.notify(h.ctx, g.GameID, h.conn, "session.moved", map[string]any{"User": user, "Move": cmd.Move.String()})

	switch outcome {
	case chess.OutcomeCheckmate:
		c.notify(h.ctx, g.GameID, nil, "session.checkmated", map[string]any{"User": displayName(g, toMove)})
		c.finish(h.ctx, g, winnerToken(toMove.Opponent()), "checkmate")
	case chess.OutcomeStalemate:
		c.notify(h.ctx, g.GameID, nil, "session.stalemate", nil)
		c.finish(h.ctx, g, "draw", "stalemate")
	case chess.OutcomeCheck:
		c.notify(h.ctx, g.GameID, nil, "session.check", map[string]any{"User": displayName(g, toMove)})
	}
	return nil
}

func (h *handler) VisitLeave(cmd protocol.LeaveCommand) error {
	c := h.c
	user, err := c.authenticate(h.ctx, cmd.Auth())
	if err != nil {
		return err
	}
	unlock := c.locks.Lock(cmd.Game())
	defer unlock()

	g, err := c.load(h.ctx, cmd.Game())
	if err != nil {
		return err
	}
	if g.Vacate(user) {
		if err := c.persist(h.ctx, g); err != nil {
			return err
		}
	}
	c.reg.Remove(h.conn)
	c.log.Info("session_leave", zap.Int("game_id", g.GameID), zap.String("user", user))
	c.notify(h.ctx, g.GameID, h.conn, "session.left", map[string]any{"User": user})
	return nil
}

func (h *handler) VisitResign(cmd protocol.ResignCommand) error {
	c := h.c
	user, err := c.authenticate(h.ctx, cmd.Auth())
	if err != nil {
		return err
	}
	unlock := c.locks.Lock(cmd.Game())
	defer unlock()

	g, err := c.load(h.ctx, cmd.Game())
	if err != nil {
		return err
	}
	color, seated := g.ColorOf(user)
	if !seated {
		return fail(ObserverForbidden, "observers cannot resign")
	}
	if g.Game.Over {
		return fail(GameOver, "game is already over")
	}
	g.Game.Over = true
	if err := c.persist(h.ctx, g); err != nil {
		return err
	}
	c.notify(h.ctx, g.GameID, nil, "session.resigned", map[string]any{"User": user})
	c.finish(h.ctx, g, winnerToken(color.Opponent()), "resignation")
	return nil
}
