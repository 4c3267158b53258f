package connreg

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConn struct{ id string }

func (f *fakeConn) ID() string                         { return f.id }
func (f *fakeConn) Send(context.Context, []byte) error { return nil }
func (f *fakeConn) IsOpen() bool                       { return true }

func TestAddLookupRemove(t *testing.T) {
	r := New()
	a, b := &fakeConn{id: "a"}, &fakeConn{id: "b"}
	r.Add(42, "alice", a)
	r.Add(42, "bob", b)

	require.Len(t, r.ConnectionsFor(42), 2)
	name, ok := r.UsernameOf(a)
	require.True(t, ok)
	require.Equal(t, "alice", name)
	gid, ok := r.GameOf(b)
	require.True(t, ok)
	require.Equal(t, 42, gid)

	require.True(t, r.Remove(a))
	require.False(t, r.Remove(a), "second remove is a no-op")
	_, ok = r.UsernameOf(a)
	require.False(t, ok)
	require.Equal(t, 1, r.Count(42))

	require.True(t, r.Remove(b))
	require.Empty(t, r.ConnectionsFor(42))
}

func TestRemoveUnknownIsNoop(t *testing.T) {
	r := New()
	require.False(t, r.Remove(&fakeConn{id: "ghost"}))
	require.False(t, r.Remove(nil))
}

func TestReAddMovesConnection(t *testing.T) {
	r := New()
	c := &fakeConn{id: "c"}
	r.Add(1, "carol", c)
	r.Add(2, "carol", c)
	require.Empty(t, r.ConnectionsFor(1))
	require.Len(t, r.ConnectionsFor(2), 1)
}

func TestSnapshotSurvivesConcurrentMutation(t *testing.T) {
	r := New()
	for i := 0; i < 50; i++ {
		r.Add(7, "u", &fakeConn{id: fmt.Sprintf("c%02d", i)})
	}
	snap := r.ConnectionsFor(7)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Remove(&fakeConn{id: fmt.Sprintf("c%02d", i)})
		}(i)
		go func(i int) {
			defer wg.Done()
			r.Add(7, "v", &fakeConn{id: fmt.Sprintf("n%02d", i)})
			_ = r.ConnectionsFor(7)
		}(i)
	}
	for _, c := range snap {
		_ = c.ID()
	}
	wg.Wait()

	require.Len(t, snap, 50, "snapshot must not change under mutation")
	require.Equal(t, 50, r.Count(7))
}
