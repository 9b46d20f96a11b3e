/*
Package storage provides the two resource.Store backends: an
in-memory VolatileStore and a bbolt-backed PersistentBackend that uses
a VolatileStore as its write-through cache.
*/
package storage

import (
	"reflect"
	"sync"

	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
)

// VolatileStore is a type-indexed in-memory resource.Store, the Go
// analogue of original_source's VolatileResourcesStorage: a
// HashMap<TypeId, HashMap<Id, Box<dyn Any>>>. reflect.Type stands in
// for TypeId and any stands in for Box<dyn Any>.
type VolatileStore struct {
	mu   sync.RWMutex
	data map[reflect.Type]map[resource.ID]any
}

// NewVolatileStore returns an empty in-memory store.
func NewVolatileStore() *VolatileStore {
	return &VolatileStore{data: make(map[reflect.Type]map[resource.ID]any)}
}

func (s *VolatileStore) InsertAny(_ resource.Kind, typ reflect.Type, id resource.ID, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	column := s.data[typ]
	if column == nil {
		column = make(map[resource.ID]any)
		s.data[typ] = column
	}
	column[id] = value
	return nil
}

func (s *VolatileStore) RemoveAny(_ resource.Kind, typ reflect.Type, id resource.ID) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	column, ok := s.data[typ]
	if !ok {
		return nil, false, nil
	}
	value, ok := column[id]
	if !ok {
		return nil, false, nil
	}
	delete(column, id)
	if len(column) == 0 {
		delete(s.data, typ)
	}
	return value, true, nil
}

func (s *VolatileStore) GetAny(_ resource.Kind, typ reflect.Type, id resource.ID) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	column, ok := s.data[typ]
	if !ok {
		return nil, false, nil
	}
	value, ok := column[id]
	return value, ok, nil
}

func (s *VolatileStore) ListAny(_ resource.Kind, typ reflect.Type) (map[resource.ID]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	column := s.data[typ]
	out := make(map[resource.ID]any, len(column))
	for id, v := range column {
		out[id] = v
	}
	return out, nil
}

// IsEmpty reports whether the store holds no resources of any kind,
// mirroring original_source's VolatileResourcesStorage::is_empty used
// by tests to assert full cleanup after a sequence of removes.
func (s *VolatileStore) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data) == 0
}

// clone returns a VolatileStore holding a copy of s's columns, used by
// VolatileBackend.Update to stage a write transaction's mutations
// without touching s until the transaction body succeeds.
func (s *VolatileStore) clone() *VolatileStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data := make(map[reflect.Type]map[resource.ID]any, len(s.data))
	for typ, column := range s.data {
		copied := make(map[resource.ID]any, len(column))
		for id, v := range column {
			copied[id] = v
		}
		data[typ] = copied
	}
	return &VolatileStore{data: data}
}

// replace atomically swaps s's columns for staged's, committing a
// staged write transaction back into s.
func (s *VolatileStore) replace(staged *VolatileStore) {
	staged.mu.RLock()
	data := staged.data
	staged.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
}

var _ resource.Store = (*VolatileStore)(nil)
