package session

import "sync"

// gameLocks is a ref-counted mutex per game id. Entries are dropped when
// the last holder unlocks.
type gameLocks struct {
	mu sync.Mutex
	m  map[int]*gameLock
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

func newGameLocks() *gameLocks { return &gameLocks{m: make(map[int]*gameLock)} }

// Lock blocks until id is free and returns its unlock func.
func (l *gameLocks) Lock(id int) func() {
	l.mu.Lock()
	e := l.m[id]
	if e == nil {
		e = &gameLock{}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

func (l *gameLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
