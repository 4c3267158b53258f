package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/park285/cheese-chess-live/internal/chess"
	"github.com/park285/cheese-chess-live/internal/domain"
)

// MemoryGameStore is an in-process store with the same versioning rules as
// RedisGameStore.
type MemoryGameStore struct {
	mu    sync.Mutex
	games map[int]*domain.Game
	seq   int
}

func NewMemoryGameStore() *MemoryGameStore {
	return &MemoryGameStore{games: make(map[int]*domain.Game)}
}

// Put stores g as-is, replacing any existing record.
func (s *MemoryGameStore) Put(g *domain.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.GameID] = g.Clone()
	if g.GameID > s.seq {
		s.seq = g.GameID
	}
}

func (s *MemoryGameStore) CreateGame(_ context.Context, name string) (*domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	now := time.Now().UTC()
	g := &domain.Game{GameID: s.seq, GameName: name, Game: chess.NewGameState(), Version: 1, CreatedAt: now, UpdatedAt: now}
	s.games[g.GameID] = g.Clone()
	return g, nil
}

func (s *MemoryGameStore) GetGame(_ context.Context, id int) (*domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.games[id].Clone(), nil
}

func (s *MemoryGameStore) UpdateGame(_ context.Context, g *domain.Game) error {
	if g == nil {
		return errors.New("nil game")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.games[g.GameID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != g.Version {
		return ErrConflict
	}
	g.Version++
	g.UpdatedAt = time.Now().UTC()
	s.games[g.GameID] = g.Clone()
	return nil
}
