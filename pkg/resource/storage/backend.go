package storage

import "github.com/eclipse-opendut/opendut-sub003/pkg/resource"

// Backend is implemented by both VolatileBackend and PersistentBackend,
// giving pkg/manager one constructor-selected handle regardless of
// which resource.Store implementation backs it — the Go equivalent of
// original_source's ResourcesStorage enum (Persistent/Volatile)
// dispatching to whichever variant connect() selected.
type Backend interface {
	View(fn func(resource.Store) error) error
	Update(fn func(resource.Store) error) error
	Close() error
}

// VolatileBackend adapts a VolatileStore to Backend. Update stages fn's
// mutations against a cloned VolatileStore and only merges them back
// into the real store once fn returns nil, so an erroring or
// cancelled body leaves the store exactly as it found it — the same
// all-or-nothing guarantee PersistentBackend.Update gets for free from
// bbolt's native transaction rollback.
type VolatileBackend struct {
	store *VolatileStore
}

// NewVolatileBackend returns a Backend over a fresh, empty VolatileStore.
func NewVolatileBackend() *VolatileBackend {
	return &VolatileBackend{store: NewVolatileStore()}
}

func (b *VolatileBackend) View(fn func(resource.Store) error) error {
	return fn(b.store)
}

func (b *VolatileBackend) Update(fn func(resource.Store) error) error {
	staged := b.store.clone()
	if err := fn(staged); err != nil {
		return err
	}
	b.store.replace(staged)
	return nil
}

func (b *VolatileBackend) Close() error {
	return nil
}

var (
	_ Backend = (*VolatileBackend)(nil)
	_ Backend = (*PersistentBackend)(nil)
)
