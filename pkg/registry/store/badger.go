package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/filedeck/pkg/registry"
)

// keyUsers holds the JSON-encoded user snapshot.
var keyUsers = []byte("registry:users")

// BadgerStore keeps the user snapshot under a single key.
type BadgerStore struct {
	db *badgerdb.DB
}

// NewBadgerStore opens (or creates) a Badger directory at path. An empty
// path opens an in-memory database.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badgerdb.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Load(ctx context.Context) ([]registry.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := []registry.User{}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyUsers)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &users)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return users, nil
}

func (s *BadgerStore) Save(ctx context.Context, users []registry.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(keyUsers, data); err != nil {
			return fmt.Errorf("failed to store users: %w", err)
		}
		return nil
	})
}

func (s *BadgerStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("healthcheck failed: database closed")
	}
	return s.db.View(func(*badgerdb.Txn) error { return nil })
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Backend = (*BadgerStore)(nil)
