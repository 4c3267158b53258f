package wsserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess-live/internal/chess"
	"github.com/park285/cheese-chess-live/internal/domain"
	"github.com/park285/cheese-chess-live/internal/render"
)

func (s *Server) loadGame(c *gin.Context) (*domain.Game, bool) {
	id, err := strconv.Atoi(trimParam(c, "id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad game id"})
		return nil, false
	}
	g, err := s.games.GetGame(c.Request.Context(), id)
	if err != nil {
		s.log.Error("http_load_game_failed", zap.Int("game_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load game"})
		return nil, false
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not found"})
		return nil, false
	}
	return g, true
}

func (s *Server) getGame(c *gin.Context) {
	g, ok := s.loadGame(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, g)
}

type movesResponse struct {
	From         string       `json:"from"`
	Moves        []chess.Move `json:"moves"`
	Destinations []string     `json:"destinations"`
}

// getMoves lists legal moves of the piece on ?from=. Used by clients to
// highlight where a selected piece can go.
func (s *Server) getMoves(c *gin.Context) {
	from, err := chess.ParsePosition(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a square like e2"})
		return
	}
	g, ok := s.loadGame(c)
	if !ok {
		return
	}
	moves := chess.LegalMoves(&g.Game.Board, from)
	if moves == nil {
		moves = []chess.Move{}
	}
	c.JSON(http.StatusOK, movesResponse{From: from.String(), Moves: moves, Destinations: destinations(moves)})
}

func destinations(moves []chess.Move) []string {
	seen := make(map[chess.Position]bool, len(moves))
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		if seen[m.End] {
			continue
		}
		seen[m.End] = true
		out = append(out, m.End.String())
	}
	return out
}

func (s *Server) getBoard(c *gin.Context) {
	g, ok := s.loadGame(c)
	if !ok {
		return
	}
	opts := render.Options{Perspective: chess.White}
	if strings.EqualFold(c.Query("perspective"), "black") {
		opts.Perspective = chess.Black
	}
	if raw := c.Query("from"); raw != "" {
		from, err := chess.ParsePosition(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a square like e2"})
			return
		}
		opts.Selected = from
		for _, m := range chess.LegalMoves(&g.Game.Board, from) {
			opts.Highlights = append(opts.Highlights, m.End)
		}
	}
	png, err := render.PNG(c.Request.Context(), g.Game.Board, opts)
	if err != nil {
		s.log.Error("render_failed", zap.Int("game_id", g.GameID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
