package registry

import (
	"context"
	"sync"
)

// MemoryStore keeps the snapshot in memory. It backs tests and the
// "memory" registry type, which forgets users on restart.
type MemoryStore struct {
	mu    sync.Mutex
	users []User
	saves int
	err   error
}

// NewMemoryStore returns a store seeded with users.
func NewMemoryStore(users ...User) *MemoryStore {
	return &MemoryStore{users: append([]User(nil), users...)}
}

func (m *MemoryStore) Load(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]User(nil), m.users...), nil
}

func (m *MemoryStore) Save(_ context.Context, users []User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.users = append([]User(nil), users...)
	m.saves++
	return nil
}

// Saves returns how many snapshots have been written.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// FailWith makes subsequent saves return err. A nil err clears the fault.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
