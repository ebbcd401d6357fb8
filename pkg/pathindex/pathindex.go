// Package pathindex maintains a flattened, durable listing of every path
// under a directory. After each mutation the acting session's current
// directory is walked in full and the listing is overwritten.
package pathindex

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/marmos91/filedeck/internal/telemetry"
	"github.com/marmos91/filedeck/pkg/workspace"
)

// Scope decides how many listings exist.
type Scope string

const (
	// ScopeGlobal keeps one listing shared by every user; the last session
	// to mutate anything wins.
	ScopeGlobal Scope = "global"

	// ScopeUser keeps one listing per username.
	ScopeUser Scope = "user"
)

// GlobalSlot names the shared listing.
const GlobalSlot = ""

// Store persists listings by slot. Write replaces the slot's contents.
type Store interface {
	Write(ctx context.Context, slot string, paths []string) error
	Read(ctx context.Context, slot string) ([]string, error)
	Close() error
}

// Indexer walks directories and writes their listings. Refreshes are
// serialized so two sessions never interleave partial writes.
type Indexer struct {
	mu    sync.Mutex
	ws    *workspace.Workspace
	store Store
	scope Scope
}

// New returns an Indexer writing to store.
func New(ws *workspace.Workspace, store Store, scope Scope) *Indexer {
	if scope == "" {
		scope = ScopeGlobal
	}
	return &Indexer{ws: ws, store: store, scope: scope}
}

// Scope returns the configured scope.
func (ix *Indexer) Scope() Scope {
	return ix.scope
}

// Slot returns the slot a refresh by username writes to.
func (ix *Indexer) Slot(username string) string {
	if ix.scope == ScopeUser {
		return username
	}
	return GlobalSlot
}

// Refresh walks dir and overwrites the listing for username's slot with
// every path found, dir first. It returns the number of entries written.
func (ix *Indexer) Refresh(ctx context.Context, username, dir string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanIndexRefresh)
	defer span.End()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	var paths []string
	err := ix.ws.Walk(dir, func(p string, _ os.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return 0, fmt.Errorf("walk %s: %w", dir, err)
	}

	if err := ix.store.Write(ctx, ix.Slot(username), paths); err != nil {
		telemetry.RecordError(ctx, err)
		return 0, fmt.Errorf("write index: %w", err)
	}

	telemetry.SetAttributes(ctx, telemetry.Path(dir), telemetry.Entries(len(paths)))
	return len(paths), nil
}

// Read returns the current listing for username's slot.
func (ix *Indexer) Read(ctx context.Context, username string) ([]string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.store.Read(ctx, ix.Slot(username))
}

// Close closes the underlying store.
func (ix *Indexer) Close() error {
	return ix.store.Close()
}
