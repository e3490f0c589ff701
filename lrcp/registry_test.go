package lrcp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_LoadOrCreate(t *testing.T) {
	reg := NewRegistry()

	first, created := reg.LoadOrCreate(1, func() *Session {
		s, _ := newTestSession(1)
		return s
	})
	require.True(t, created)

	second, created := reg.LoadOrCreate(1, func() *Session {
		t.Fatal("must not build a session for an existing id")
		return nil
	})
	require.False(t, created)
	require.Same(t, first, second)
	require.Equal(t, 1, reg.Len())
}

func TestRegistry_RemoveOnlyCurrentEntry(t *testing.T) {
	reg := NewRegistry()

	old, _ := newTestSession(1)
	reg.LoadOrCreate(1, func() *Session { return old })
	require.True(t, reg.Contains(old))
	require.True(t, reg.Remove(old))
	require.False(t, reg.Remove(old))
	require.False(t, reg.Contains(old))

	fresh, _ := newTestSession(1)
	reg.LoadOrCreate(1, func() *Session { return fresh })

	// a stale pointer never removes the session that reused its id
	require.False(t, reg.Remove(old))
	got, ok := reg.Get(1)
	require.True(t, ok)
	require.Same(t, fresh, got)
}

func TestRegistry_Concurrent(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := uint64(i % 10) //nolint:gosec
			_, created := reg.LoadOrCreate(id, func() *Session {
				s, _ := newTestSession(id)
				return s
			})
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 10, createdCount)
	require.Equal(t, 10, reg.Len())

	seen := 0
	reg.Range(func(*Session) bool {
		seen++
		return true
	})
	require.Equal(t, 10, seen)
}
