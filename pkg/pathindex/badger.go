package pathindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
)

const (
	prefixIndex = "index:"
	keyGlobal   = prefixIndex + "global"
	prefixUser  = prefixIndex + "user:"
)

func keySlot(slot string) []byte {
	if slot == GlobalSlot {
		return []byte(keyGlobal)
	}
	return []byte(prefixUser + slot)
}

// BadgerStore keeps each listing as a JSON array under its own key.
type BadgerStore struct {
	db *badgerdb.DB
}

// NewBadgerStore opens a Badger directory at path, or an in-memory
// database when path is empty.
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

func (s *BadgerStore) Write(ctx context.Context, slot string, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if paths == nil {
		paths = []string{}
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keySlot(slot), data)
	})
}

func (s *BadgerStore) Read(ctx context.Context, slot string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := []string{}
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keySlot(slot))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &paths)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	return paths, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
