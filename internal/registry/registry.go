// Package registry is the durable record of which workspaces exist.
//
// Every mutation is a whole-document read-modify-write performed under a
// single critical section: load the full record set, change it in memory,
// save the full set. Stores never see partial-record updates.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/berth/internal/domain"
)

// Store persists the registry document.
type Store interface {
	// Load returns the current document. A store that has never been
	// written returns an empty document, not an error.
	Load(ctx context.Context) (*domain.RegistryDocument, error)
	// Save replaces the whole document atomically.
	Save(ctx context.Context, doc *domain.RegistryDocument) error
	Close() error
}

// Locker is implemented by stores that can be shared between processes.
// The registry holds the lock for the duration of each read-modify-write.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// Registry owns the workspace records. It does not enforce cross-record
// invariants such as port uniqueness; that is the lifecycle manager's job.
type Registry struct {
	mu    sync.Mutex
	store Store
}

// New wraps a store.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// Get returns a copy of the named record, or domain.ErrNotFound.
func (r *Registry) Get(ctx context.Context, name string) (domain.WorkspaceRecord, error) {
	var rec domain.WorkspaceRecord
	err := r.read(ctx, func(doc *domain.RegistryDocument) error {
		i := doc.Index(name)
		if i < 0 {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
		rec = doc.Workspaces[i]
		return nil
	})
	return rec, err
}

// List returns copies of all records in insertion order.
func (r *Registry) List(ctx context.Context) ([]domain.WorkspaceRecord, error) {
	var out []domain.WorkspaceRecord
	err := r.read(ctx, func(doc *domain.RegistryDocument) error {
		out = make([]domain.WorkspaceRecord, len(doc.Workspaces))
		copy(out, doc.Workspaces)
		return nil
	})
	return out, err
}

// Count returns the number of records.
func (r *Registry) Count(ctx context.Context) (int, error) {
	n := 0
	err := r.read(ctx, func(doc *domain.RegistryDocument) error {
		n = len(doc.Workspaces)
		return nil
	})
	return n, err
}

// Put inserts or replaces rec. A replaced record keeps its position.
func (r *Registry) Put(ctx context.Context, rec domain.WorkspaceRecord) error {
	return r.write(ctx, func(doc *domain.RegistryDocument) (bool, error) {
		if i := doc.Index(rec.Name); i >= 0 {
			doc.Workspaces[i] = rec
		} else {
			doc.Workspaces = append(doc.Workspaces, rec)
		}
		return true, nil
	})
}

// Update applies fn to the named record and writes it back, all under the
// registry lock. fn receives a copy. Returns domain.ErrNotFound when the
// record is gone (for instance deleted concurrently).
func (r *Registry) Update(ctx context.Context, name string, fn func(*domain.WorkspaceRecord)) (domain.WorkspaceRecord, error) {
	var updated domain.WorkspaceRecord
	err := r.write(ctx, func(doc *domain.RegistryDocument) (bool, error) {
		i := doc.Index(name)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
		rec := doc.Workspaces[i]
		fn(&rec)
		rec.Name = name
		doc.Workspaces[i] = rec
		updated = rec
		return true, nil
	})
	return updated, err
}

// Delete removes the named record. Deleting an absent record succeeds.
func (r *Registry) Delete(ctx context.Context, name string) error {
	return r.write(ctx, func(doc *domain.RegistryDocument) (bool, error) {
		i := doc.Index(name)
		if i < 0 {
			return false, nil
		}
		doc.Workspaces = append(doc.Workspaces[:i], doc.Workspaces[i+1:]...)
		return true, nil
	})
}

// Ping loads the document once to check the store is usable.
func (r *Registry) Ping(ctx context.Context) error {
	return r.read(ctx, func(*domain.RegistryDocument) error { return nil })
}

// Close releases the underlying store.
func (r *Registry) Close() error {
	return r.store.Close()
}

func (r *Registry) read(ctx context.Context, fn func(doc *domain.RegistryDocument) error) error {
	return r.locked(ctx, func() error {
		doc, err := r.load(ctx)
		if err != nil {
			return err
		}
		return fn(doc)
	})
}

func (r *Registry) write(ctx context.Context, fn func(doc *domain.RegistryDocument) (bool, error)) error {
	return r.locked(ctx, func() error {
		doc, err := r.load(ctx)
		if err != nil {
			return err
		}
		changed, err := fn(doc)
		if err != nil || !changed {
			return err
		}
		if err := r.store.Save(ctx, doc); err != nil {
			return fmt.Errorf("%w: save: %w", domain.ErrRegistryIO, err)
		}
		return nil
	})
}

func (r *Registry) locked(ctx context.Context, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.store.(Locker); ok {
		unlock, err := l.Lock(ctx)
		if err != nil {
			return fmt.Errorf("%w: lock: %w", domain.ErrRegistryIO, err)
		}
		defer unlock()
	}
	return fn()
}

func (r *Registry) load(ctx context.Context) (*domain.RegistryDocument, error) {
	doc, err := r.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrRegistryIO) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load: %w", domain.ErrRegistryIO, err)
	}
	if doc == nil {
		doc = domain.NewRegistryDocument()
	}
	return doc, nil
}
