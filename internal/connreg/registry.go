// Package connreg tracks which live connections watch which game.
package connreg

import (
	"context"
	"sort"
	"sync"
)

// Conn is a transport handle with a stable identity.
type Conn interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
	IsOpen() bool
}

type entry struct {
	conn     Conn
	username string
	gameID   int
}

// Registry maps game id → connections and connection → username.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byGame map[int]map[string]Conn
	byConn map[string]entry
}

func New() *Registry {
	return &Registry{
		byGame: make(map[int]map[string]Conn),
		byConn: make(map[string]entry),
	}
}

// Add registers conn under gameID. A connection watches at most one game;
// adding it again moves it.
func (r *Registry) Add(gameID int, username string, conn Conn) {
	if conn == nil {
		return
	}
	id := conn.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byConn[id]; ok && prev.gameID != gameID {
		r.dropLocked(prev.gameID, id)
	}
	set := r.byGame[gameID]
	if set == nil {
		set = make(map[string]Conn)
		r.byGame[gameID] = set
	}
	set[id] = conn
	r.byConn[id] = entry{conn: conn, username: username, gameID: gameID}
}

// Remove forgets conn. Removing an unknown connection is a no-op.
func (r *Registry) Remove(conn Conn) bool {
	if conn == nil {
		return false
	}
	id := conn.ID()
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byConn[id]
	if !ok {
		return false
	}
	delete(r.byConn, id)
	r.dropLocked(e.gameID, id)
	return true
}

func (r *Registry) dropLocked(gameID int, id string) {
	set := r.byGame[gameID]
	delete(set, id)
	if len(set) == 0 {
		delete(r.byGame, gameID)
	}
}

// ConnectionsFor returns a snapshot of the connections on gameID, ordered
// by connection id. The slice is owned by the caller.
func (r *Registry) ConnectionsFor(gameID int) []Conn {
	r.mu.RLock()
	set := r.byGame[gameID]
	out := make([]Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) UsernameOf(conn Conn) (string, bool) {
	if conn == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byConn[conn.ID()]
	return e.username, ok
}

// GameOf returns the game conn is registered on.
func (r *Registry) GameOf(conn Conn) (int, bool) {
	if conn == nil {
		return 0, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byConn[conn.ID()]
	return e.gameID, ok
}

func (r *Registry) Count(gameID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byGame[gameID])
}
