package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type counter struct{ N int }

func TestDoStoresAndEndsSessions(t *testing.T) {
	m := NewMemoryManager[counter]()
	require.False(t, m.InProgress(1))

	require.NoError(t, m.Do(1, func(cur *counter) (*counter, error) {
		require.Nil(t, cur)
		return &counter{N: 1}, nil
	}))
	got, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, 1, got.N)
	require.Equal(t, 1, m.Len())

	m.Clear(1)
	require.False(t, m.InProgress(1))
	require.Equal(t, 0, m.Len())
	require.Empty(t, m.slots)
}

func TestDoKeepsReplacementOnError(t *testing.T) {
	m := NewMemoryManager[counter]()
	boom := errors.New("boom")
	err := m.Do(7, func(*counter) (*counter, error) {
		return &counter{N: 3}, boom
	})
	require.ErrorIs(t, err, boom)
	got, ok := m.Get(7)
	require.True(t, ok)
	require.Equal(t, 3, got.N)
}

func TestDoSerializesPerUser(t *testing.T) {
	m := NewMemoryManager[counter]()
	const workers, rounds = 8, 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				_ = m.Do(42, func(cur *counter) (*counter, error) {
					next := counter{}
					if cur != nil {
						next = *cur
					}
					next.N++
					return &next, nil
				})
			}
		}()
	}
	wg.Wait()

	got, ok := m.Get(42)
	require.True(t, ok)
	require.Equal(t, workers*rounds, got.N)
}

func TestUsersAreIndependent(t *testing.T) {
	m := NewMemoryManager[counter]()
	require.NoError(t, m.Do(1, func(*counter) (*counter, error) { return &counter{N: 1}, nil }))
	require.NoError(t, m.Do(2, func(*counter) (*counter, error) { return &counter{N: 2}, nil }))

	m.Clear(1)
	got, ok := m.Get(2)
	require.True(t, ok)
	require.Equal(t, 2, got.N)
	require.Equal(t, 1, m.Len())
}
