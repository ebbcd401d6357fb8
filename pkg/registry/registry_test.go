package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRegistry(t *testing.T, users ...User) (*Registry, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(users...)
	reg, err := Open(context.Background(), store)
	require.NoError(t, err)
	return reg, store
}

func TestOpen(t *testing.T) {
	t.Run("EmptyStore", func(t *testing.T) {
		reg, store := openRegistry(t)
		assert.Zero(t, reg.Len())
		assert.Empty(t, reg.Snapshot())
		assert.Equal(t, 1, store.Saves(), "empty snapshot written on open")
	})

	t.Run("DuplicateSnapshotEntriesCollapse", func(t *testing.T) {
		reg, _ := openRegistry(t,
			User{Username: "alice", Password: "first"},
			User{Username: "alice", Password: "second"},
			User{Username: "bob", Password: "pw"},
		)
		assert.Equal(t, 2, reg.Len())

		_, ok := reg.Find("alice", "first")
		assert.True(t, ok, "first occurrence wins")
	})
}

func TestFind(t *testing.T) {
	reg, _ := openRegistry(t, User{Username: "alice", Password: "s3cret"})

	tests := []struct {
		name     string
		username string
		password string
		want     bool
	}{
		{"exact match", "alice", "s3cret", true},
		{"wrong password", "alice", "secret", false},
		{"wrong case username", "Alice", "s3cret", false},
		{"unknown user", "bob", "s3cret", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, ok := reg.Find(tt.username, tt.password)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.username, u.Username)
			}
		})
	}
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("PersistsFullSet", func(t *testing.T) {
		reg, store := openRegistry(t, User{Username: "alice", Password: "a"})

		require.NoError(t, reg.Add(ctx, User{Username: "bob", Password: "b"}))

		saved, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []User{{"alice", "a"}, {"bob", "b"}}, saved)
		assert.True(t, reg.Exists("bob"))
		assert.Equal(t, 1, store.Saves())
	})

	t.Run("DuplicateLeavesSetUnchanged", func(t *testing.T) {
		reg, store := openRegistry(t, User{Username: "alice", Password: "a"})

		err := reg.Add(ctx, User{Username: "alice", Password: "other"})
		assert.ErrorIs(t, err, ErrUserExists)
		assert.Equal(t, 1, reg.Len())
		assert.Zero(t, store.Saves())

		_, ok := reg.Find("alice", "a")
		assert.True(t, ok, "original password must be kept")
	})

	t.Run("EmptyUsernameRejected", func(t *testing.T) {
		reg, _ := openRegistry(t)
		assert.ErrorIs(t, reg.Add(ctx, User{Password: "x"}), ErrEmptyUsername)
	})

	t.Run("RollbackOnSaveFailure", func(t *testing.T) {
		reg, store := openRegistry(t)
		store.FailWith(errors.New("disk full"))

		err := reg.Add(ctx, User{Username: "carol", Password: "c"})
		require.Error(t, err)
		assert.False(t, reg.Exists("carol"))
		assert.Zero(t, reg.Len())

		store.FailWith(nil)
		require.NoError(t, reg.Add(ctx, User{Username: "carol", Password: "c"}))
		assert.True(t, reg.Exists("carol"))
	})
}

func TestConcurrentAdd(t *testing.T) {
	ctx := context.Background()
	reg, store := openRegistry(t)

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, reg.Add(ctx, User{Username: fmt.Sprintf("user-%02d", i), Password: "pw"}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, workers, reg.Len())

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, workers, "last snapshot must contain every user")
}

func TestConcurrentDuplicateAdd(t *testing.T) {
	ctx := context.Background()
	reg, _ := openRegistry(t)

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := reg.Add(ctx, User{Username: "same", Password: "pw"}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, reg.Len())
}

func TestUsernamesSorted(t *testing.T) {
	reg, _ := openRegistry(t,
		User{Username: "mallory"},
		User{Username: "alice"},
		User{Username: "bob"},
	)
	assert.Equal(t, []string{"alice", "bob", "mallory"}, reg.Usernames())
}
