// Package registry holds the set of registered users shared by all sessions.
//
// The Registry owns its set behind one mutex. Every successful Add is
// followed, under the same lock, by a full-set write to the backing Store,
// so two concurrent registrations can never lose an update.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUserExists is returned by Add for a username already registered.
	ErrUserExists = errors.New("user already exists")

	// ErrEmptyUsername is returned by Add for an empty username.
	ErrEmptyUsername = errors.New("username is required")
)

// User is one registered account. Passwords are opaque strings compared
// byte for byte.
type User struct {
	Username string `json:"username" yaml:"username" gorm:"primaryKey;size:255"`
	Password string `json:"password" yaml:"password" gorm:"not null"`
}

// Store persists the full user set. Load on a store that has never been
// written returns an empty set and no error.
type Store interface {
	Load(ctx context.Context) ([]User, error)
	Save(ctx context.Context, users []User) error
}

// Registry is the in-memory user set mirrored to a Store.
type Registry struct {
	mu     sync.Mutex
	users  []User
	byName map[string]int
	store  Store
}

// Open loads the initial set from store. An empty store is written back
// immediately so the durable snapshot exists from first start.
func Open(ctx context.Context, store Store) (*Registry, error) {
	users, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if len(users) == 0 {
		if err := store.Save(ctx, []User{}); err != nil {
			return nil, fmt.Errorf("initialize user snapshot: %w", err)
		}
	}

	r := &Registry{
		users:  make([]User, 0, len(users)),
		byName: make(map[string]int, len(users)),
		store:  store,
	}
	for _, u := range users {
		if _, dup := r.byName[u.Username]; dup {
			continue
		}
		r.byName[u.Username] = len(r.users)
		r.users = append(r.users, u)
	}
	return r, nil
}

// Find returns the user matching both username and password exactly.
func (r *Registry) Find(username, password string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.byName[username]
	if !ok || r.users[i].Password != password {
		return User{}, false
	}
	return r.users[i], true
}

// Exists reports whether username is registered.
func (r *Registry) Exists(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byName[username]
	return ok
}

// Add registers u and persists the whole set. If the write fails the
// in-memory set is rolled back so memory and store stay in agreement.
func (r *Registry) Add(ctx context.Context, u User) error {
	if u.Username == "" {
		return ErrEmptyUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[u.Username]; ok {
		return fmt.Errorf("%q: %w", u.Username, ErrUserExists)
	}

	r.byName[u.Username] = len(r.users)
	r.users = append(r.users, u)

	if err := r.store.Save(ctx, r.copyLocked()); err != nil {
		r.users = r.users[:len(r.users)-1]
		delete(r.byName, u.Username)
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

// Snapshot returns a copy of every registered user in registration order.
func (r *Registry) Snapshot() []User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyLocked()
}

// Usernames returns the registered usernames, sorted.
func (r *Registry) Usernames() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.users))
	for _, u := range r.users {
		names = append(names, u.Username)
	}
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered users.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *Registry) copyLocked() []User {
	out := make([]User, len(r.users))
	copy(out, r.users)
	return out
}
