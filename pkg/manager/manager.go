/*
Package manager implements the resource core's transaction-scoped
execution model: Manager owns one storage backend and one bundle of
per-kind subscription channels, and gives callers Resources/ResourcesMut
to run read-only and read-write bodies against them.
*/
package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eclipse-opendut/opendut-sub003/pkg/log"
	"github.com/eclipse-opendut/opendut-sub003/pkg/metrics"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/history"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/rerr"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/storage"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/subscription"
)

// DefaultSubscriptionCapacity matches spec.md §4.5/§6's default
// Broadcaster retention per kind.
const DefaultSubscriptionCapacity = 100

// DefaultHistoryLength matches spec.md §3's default revision ring
// depth per (kind, id).
const DefaultHistoryLength = 64

// Config selects and sizes a Manager's backend. It is deliberately
// separate from pkg/config.Config (which also carries ambient flags
// like log level) so this package stays free of a dependency on the
// CLI's configuration layer.
type Config struct {
	Persistent           bool
	DataPath             string
	SubscriptionCapacity uint64
	HistoryLength        int
}

func (c Config) withDefaults() Config {
	if c.SubscriptionCapacity == 0 {
		c.SubscriptionCapacity = DefaultSubscriptionCapacity
	}
	if c.HistoryLength == 0 {
		c.HistoryLength = DefaultHistoryLength
	}
	return c
}

type historyKey struct {
	kind resource.Kind
	id   resource.ID
}

// Manager is the resource core's single entry point: spec.md §2.7's
// "Resource Manager", wrapping one storage.Backend and one
// subscription.Channels bundle and exposing the scoped-transaction
// API that replaces Rust's borrow-checked transaction lifetimes.
type Manager struct {
	backend       storage.Backend
	channels      *subscription.Channels
	historyLength int

	historiesMu sync.Mutex
	histories   map[historyKey]*history.Ring

	log zerolog.Logger
}

// NewInMemory returns a Manager backed by a fresh, empty
// storage.VolatileBackend — spec.md §4.4's non-persistent connect()
// variant, used by tests and by callers that don't need durability.
func NewInMemory() *Manager {
	cfg := Config{}.withDefaults()
	return &Manager{
		backend:       storage.NewVolatileBackend(),
		channels:      subscription.NewChannels(cfg.SubscriptionCapacity),
		historyLength: cfg.HistoryLength,
		histories:     make(map[historyKey]*history.Ring),
		log:           log.WithComponent("manager"),
	}
}

// NewPersistent opens (or creates) a bbolt-backed Manager at
// cfg.DataPath — spec.md §4.4/§6's persistent connect() variant.
func NewPersistent(ctx context.Context, cfg Config) (*Manager, error) {
	cfg = cfg.withDefaults()
	if cfg.DataPath == "" {
		return nil, rerr.New(rerr.OpOpen, "backend", "", rerr.ErrInvalidInput)
	}
	backend, err := storage.OpenPersistent(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	return &Manager{
		backend:       backend,
		channels:      subscription.NewChannels(cfg.SubscriptionCapacity),
		historyLength: cfg.HistoryLength,
		histories:     make(map[historyKey]*history.Ring),
		log:           log.WithComponent("manager"),
	}, nil
}

// Close shuts every live subscription channel down (Channels.Close
// fans that out one goroutine per kind) and then closes the storage
// backend.
func (m *Manager) Close() error {
	m.channels.Close()
	return m.backend.Close()
}

// Resources runs a read-only body. No SubscriptionEvent may be
// recorded from within it; doing so panics, mirroring
// original_source's debug_assert!(relayed_subscription_events.is_empty()).
func (m *Manager) Resources(ctx context.Context, body func(*Tx) error) error {
	timer := metrics.NewTimer()
	err := m.backend.View(func(store resource.Store) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return body(&Tx{store: store, readOnly: true})
	})
	metrics.ObserveTransaction("read", timer.Duration(), err == nil)
	return err
}

// ResourcesMut runs a write body against a backend transaction. On
// success the backend transaction commits and every SubscriptionEvent
// the body buffered is published; on error or ctx cancellation the
// backend transaction rolls back and the buffer is discarded
// untouched — the scoped-execution pattern spec.md §9 calls for in
// place of Rust's transaction lifetimes.
func (m *Manager) ResourcesMut(ctx context.Context, body func(*Tx) error) error {
	timer := metrics.NewTimer()
	tx := &Tx{}
	err := m.backend.Update(func(store resource.Store) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		tx.store = store
		return body(tx)
	})
	ok := err == nil
	metrics.ObserveTransaction("write", timer.Duration(), ok)
	if !ok {
		m.log.Debug().Err(err).Msg("transaction rolled back")
		return err
	}
	for _, publish := range tx.pending {
		publish(m.channels)
	}
	m.log.Debug().Int("events", len(tx.pending)).Msg("transaction committed")
	return nil
}

// Channels exposes the Manager's subscription bundle for metrics
// collection; resource code should use Subscribe, not this directly.
func (m *Manager) Channels() *subscription.Channels {
	return m.channels
}

// Subscribe returns a cursor observing every SubscriptionEvent[R]
// published from this call onward.
func Subscribe[R resource.Resource](m *Manager) *subscription.ResourceSubscription[R] {
	return subscription.Subscribe[R](m.channels)
}

// historyFor returns (creating if absent) the revision ring for
// (kind, id).
func (m *Manager) historyFor(kind resource.Kind, id resource.ID) *history.Ring {
	m.historiesMu.Lock()
	defer m.historiesMu.Unlock()
	key := historyKey{kind: kind, id: id}
	ring, ok := m.histories[key]
	if !ok {
		ring = m.loadHistory(kind, id)
		m.histories[key] = ring
	}
	return ring
}

// loadHistory returns the ring persisted for (kind, id) in the
// backend's "<kind>__history" bucket, if the backend supports it
// (storage.PersistentBackend does, storage.VolatileBackend doesn't),
// falling back to a fresh empty ring — spec.md §5.6's restart-survival
// guarantee for revision history on a persistent Manager.
func (m *Manager) loadHistory(kind resource.Kind, id resource.ID) *history.Ring {
	var data []byte
	var found bool
	_ = m.backend.View(func(store resource.Store) error {
		hs, ok := store.(resource.HistoryStore)
		if !ok {
			return nil
		}
		d, f, err := hs.GetHistory(kind, id)
		if err != nil {
			return err
		}
		data, found = d, f
		return nil
	})
	if found {
		if ring, err := history.Restore(m.historyLength, data); err == nil {
			return ring
		}
		m.log.Warn().Str("kind", string(kind)).Str("id", id.String()).Msg("discarding corrupt persisted history")
	}
	return history.NewRing(m.historyLength)
}

// CommitRevision stores value as the new head of (kind, id)'s
// revision chain, built on top of parent, and inserts value into the
// backend in the same transaction. If value's content hash is
// unchanged from the current head and parent names that same head,
// the call is a no-op: nothing is written and no event is published,
// per spec.md §9's resolved Open Question for revisioned kinds.
func CommitRevision[R resource.Resource](m *Manager, ctx context.Context, id resource.ID, parent history.Hash, value R) (history.Revision, error) {
	ring := m.historyFor(value.Kind(), id)
	head := ring.Head()

	candidate, err := history.HashOf(value)
	if err != nil {
		return history.Revision{}, err
	}
	if parent == head && candidate == head {
		return history.Revision{Current: head, Parent: head}, nil
	}

	var rev history.Revision
	var staged *history.Ring
	err = m.ResourcesMut(ctx, func(tx *Tx) error {
		if err := Insert[R](tx, id, value); err != nil {
			return err
		}
		// Commit against a clone, not ring itself: if persisting the
		// snapshot below fails, the backend transaction rolls back and
		// ring must still report the old head on the next call.
		staged = ring.Clone()
		committed, cErr := staged.Commit(parent, value)
		if cErr != nil {
			return cErr
		}
		if hs, ok := tx.store.(resource.HistoryStore); ok {
			snapshot, sErr := staged.Snapshot()
			if sErr != nil {
				return sErr
			}
			if pErr := hs.PutHistory(value.Kind(), id, snapshot); pErr != nil {
				return pErr
			}
		}
		rev = committed
		return nil
	})
	if err != nil {
		return history.Revision{}, fmt.Errorf("commit revision: %w", err)
	}

	m.historiesMu.Lock()
	m.histories[historyKey{kind: value.Kind(), id: id}] = staged
	m.historiesMu.Unlock()
	return rev, nil
}

// RevisionAt decodes the value committed at hash for (kind, id), if
// still retained by the ring.
func RevisionAt[R resource.Resource](m *Manager, id resource.ID, hash history.Hash) (R, history.Revision, bool, error) {
	var zero R
	ring := m.historyFor(zero.Kind(), id)
	var out R
	rev, found, err := ring.At(hash, &out)
	return out, rev, found, err
}
