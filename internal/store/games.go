package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess-live/internal/chess"
	"github.com/park285/cheese-chess-live/internal/domain"
	"github.com/park285/cheese-chess-live/internal/obslog"
)

const (
	ttlGame  = 7 * 24 * time.Hour
	keySeq   = "chess:game:seq"
	keyIndex = "chess:games"
	maxRetry = 3
)

func gameKey(id int) string { return "chess:game:" + strconv.Itoa(id) }

// RedisGameStore keeps each game as one JSON value. Writes are guarded by
// WATCH plus the record's Version.
type RedisGameStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisGameStore(rdb *redis.Client) *RedisGameStore {
	return &RedisGameStore{rdb: rdb, now: time.Now}
}

// GetGame returns (nil, nil) when the game does not exist.
func (s *RedisGameStore) GetGame(ctx context.Context, id int) (*domain.Game, error) {
	return getGame(ctx, s.rdb, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getGame(ctx context.Context, c getter, id int) (*domain.Game, error) {
	raw, err := c.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game %d: %w", id, err)
	}
	var g domain.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode game %d: %w", id, err)
	}
	return &g, nil
}

// UpdateGame writes g if the stored Version still equals g.Version. On
// success g.Version and g.UpdatedAt reflect the stored record.
func (s *RedisGameStore) UpdateGame(ctx context.Context, g *domain.Game) error {
	if g == nil {
		return errors.New("nil game")
	}
	key := gameKey(g.GameID)
	next := *g
	next.Version = g.Version + 1
	next.UpdatedAt = s.now().UTC()

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := getGame(ctx, tx, g.GameID)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrNotFound
		}
		// 동시 갱신 감지: 읽은 버전과 다르면 다른 쓰기가 먼저 들어온 것
		if cur.Version != g.Version {
			return ErrConflict
		}
		raw, err := json.Marshal(&next)
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, key, raw, ttlGame)
		_, err = pipe.Exec(ctx)
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	*g = next
	return nil
}

// CreateGame allocates the next game id and stores a fresh game.
func (s *RedisGameStore) CreateGame(ctx context.Context, name string) (*domain.Game, error) {
	id, err := s.rdb.Incr(ctx, keySeq).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate game id: %w", err)
	}
	now := s.now().UTC()
	g := &domain.Game{
		GameID:    int(id),
		GameName:  strings.TrimSpace(name),
		Game:      chess.NewGameState(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	ok, err := s.rdb.SetNX(ctx, gameKey(g.GameID), raw, ttlGame).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("game %d already exists", g.GameID)
	}
	// 인덱스 실패는 게임 생성 자체를 막지 않는다. ListGames에서만 빠진다.
	if err := s.rdb.ZAdd(ctx, keyIndex, redis.Z{Score: float64(g.GameID), Member: g.GameID}).Err(); err != nil {
		obslog.L().Warn("game_index_add_failed", zap.Int("game_id", g.GameID), zap.Error(err))
	}
	return g, nil
}

// JoinSeat puts username on the seat for color. A seat held by someone else
// yields ErrSeatTaken; rejoining one's own seat is a no-op.
func (s *RedisGameStore) JoinSeat(ctx context.Context, id int, color chess.Color, username string) (*domain.Game, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	var lastErr error
	for i := 0; i < maxRetry; i++ {
		g, err := s.GetGame(ctx, id)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, ErrNotFound
		}
		seat := &g.WhiteUsername
		if color == chess.Black {
			seat = &g.BlackUsername
		}
		switch *seat {
		case username:
			return g, nil
		case "":
			*seat = username
		default:
			return nil, ErrSeatTaken
		}
		lastErr = s.UpdateGame(ctx, g)
		if lastErr == nil {
			return g, nil
		}
		if !errors.Is(lastErr, ErrConflict) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// ListGames returns up to limit games, newest first.
func (s *RedisGameStore) ListGames(ctx context.Context, limit int) ([]*domain.Game, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.rdb.ZRevRange(ctx, keyIndex, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Game, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		g, err := s.GetGame(ctx, id)
		if err != nil {
			return nil, err
		}
		if g == nil {
			if err := s.rdb.ZRem(ctx, keyIndex, raw).Err(); err != nil {
				obslog.L().Warn("game_index_prune_failed", zap.Int("game_id", id), zap.Error(err))
			}
			continue
		}
		out = append(out, g)
	}
	return out, nil
}
