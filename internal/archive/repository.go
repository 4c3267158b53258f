// Package archive stores finished games in Postgres.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/cheese-chess-live/internal/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS chess_results (
	game_id        INTEGER PRIMARY KEY,
	game_name      TEXT NOT NULL DEFAULT '',
	white_username TEXT NOT NULL DEFAULT '',
	black_username TEXT NOT NULL DEFAULT '',
	result         TEXT NOT NULL,
	pgn_result     TEXT NOT NULL,
	result_method  TEXT NOT NULL,
	final_fen      TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	ended_at       TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT NOT NULL DEFAULT 0
)`

type Repository struct {
	db *sql.DB
}

func NewRepository(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Repository{db: db}, nil
}

// EnsureSchema creates the results table if missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts the final result of a game.
func (r *Repository) SaveResult(ctx context.Context, res domain.GameResult) error {
	if r == nil || r.db == nil {
		return nil
	}
	if err := validate(res); err != nil {
		return err
	}
	duration := res.EndedAt.Sub(res.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	const q = `INSERT INTO chess_results (
		game_id, game_name, white_username, black_username,
		result, pgn_result, result_method, final_fen,
		started_at, ended_at, duration_ms
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (game_id) DO UPDATE SET
		game_name=EXCLUDED.game_name,
		white_username=EXCLUDED.white_username,
		black_username=EXCLUDED.black_username,
		result=EXCLUDED.result,
		pgn_result=EXCLUDED.pgn_result,
		result_method=EXCLUDED.result_method,
		final_fen=EXCLUDED.final_fen,
		started_at=EXCLUDED.started_at,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		res.GameID, res.GameName, res.WhiteUsername, res.BlackUsername,
		res.Result, PGNResult(res.Result), res.Method, res.FinalFEN,
		res.StartedAt, res.EndedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("save result %d: %w", res.GameID, err)
	}
	return nil
}

func validate(res domain.GameResult) error {
	switch res.Result {
	case "white", "black", "draw":
	default:
		return fmt.Errorf("invalid result %q", res.Result)
	}
	if strings.TrimSpace(res.Method) == "" {
		return errors.New("result method is required")
	}
	return nil
}

// PGNResult maps a result token to the PGN result tag.
func PGNResult(result string) string {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}
