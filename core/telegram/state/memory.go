package state

import (
	"sync"
	"sync/atomic"
)

// Manager stores one session of type S per user. Transitions for the same user
// are serialized; different users run in parallel.
type Manager[S any] struct {
	mu     sync.Mutex
	slots  map[int64]*slot[S]
	active atomic.Int64
}

type slot[S any] struct {
	mu      sync.Mutex
	refs    int
	session *S
}

// NewMemoryManager returns an empty in-memory Manager.
func NewMemoryManager[S any]() *Manager[S] {
	return &Manager[S]{slots: make(map[int64]*slot[S])}
}

func (m *Manager[S]) acquire(userID int64) *slot[S] {
	m.mu.Lock()
	s, ok := m.slots[userID]
	if !ok {
		s = &slot[S]{}
		m.slots[userID] = s
	}
	s.refs++
	m.mu.Unlock()

	s.mu.Lock()
	return s
}

func (m *Manager[S]) release(userID int64, s *slot[S]) {
	m.mu.Lock()
	s.refs--
	if s.refs == 0 && s.session == nil {
		delete(m.slots, userID)
	}
	m.mu.Unlock()
	s.mu.Unlock()
}

// Do runs fn with the user's current session (nil when none) while holding that
// user's lock. The session returned by fn replaces the stored one; returning nil
// ends the session. The replacement is stored even when fn also returns an error.
func (m *Manager[S]) Do(userID int64, fn func(cur *S) (*S, error)) error {
	s := m.acquire(userID)
	defer m.release(userID, s)

	next, err := fn(s.session)
	switch {
	case s.session == nil && next != nil:
		m.active.Add(1)
	case s.session != nil && next == nil:
		m.active.Add(-1)
	}
	s.session = next
	return err
}

// Get returns a copy of the user's session.
func (m *Manager[S]) Get(userID int64) (S, bool) {
	var out S
	found := false
	_ = m.Do(userID, func(cur *S) (*S, error) {
		if cur != nil {
			out, found = *cur, true
		}
		return cur, nil
	})
	return out, found
}

// InProgress reports whether the user has an active session.
func (m *Manager[S]) InProgress(userID int64) bool {
	_, ok := m.Get(userID)
	return ok
}

// Clear ends the user's session.
func (m *Manager[S]) Clear(userID int64) {
	_ = m.Do(userID, func(*S) (*S, error) { return nil, nil })
}

// Len returns the number of users with an active session.
func (m *Manager[S]) Len() int {
	return int(m.active.Load())
}
