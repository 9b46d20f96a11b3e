package resource

import (
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/eclipse-opendut/opendut-sub003/pkg/log"
	"github.com/eclipse-opendut/opendut-sub003/pkg/metrics"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/rerr"
)

// Store is the backend-agnostic surface both the volatile and
// persistent backends implement, and that a write transaction handle
// implements identically — the Go equivalent of original_source's
// ResourcesStorageApi trait, implemented by both
// PersistentResourcesStorage and PersistentResourcesTransaction.
//
// Methods are typed in terms of reflect.Type rather than a generic
// parameter because Go forbids generic methods on concrete receivers;
// typ is the Box<dyn Any>-style discriminator used by the volatile
// backend, kind is the stable bucket/label name used by the
// persistent backend and metrics.
type Store interface {
	InsertAny(kind Kind, typ reflect.Type, id ID, value any) error
	RemoveAny(kind Kind, typ reflect.Type, id ID) (value any, found bool, err error)
	GetAny(kind Kind, typ reflect.Type, id ID) (value any, found bool, err error)
	ListAny(kind Kind, typ reflect.Type) (map[ID]any, error)
}

// HistoryStore is implemented by a Store that can additionally persist
// a Revisioned resource's serialized history.Ring state in the same
// transaction as its resource mutation — spec.md §5.6's
// "<kind>__history" parallel bucket. Only storage.PersistentBackend's
// transaction implements it; the volatile backend has nothing to
// survive a restart for, so Manager's in-process ring cache alone is
// sufficient there.
type HistoryStore interface {
	PutHistory(kind Kind, id ID, data []byte) error
	GetHistory(kind Kind, id ID) (data []byte, found bool, err error)
}

func typeOf[R Resource]() reflect.Type {
	return reflect.TypeOf((*R)(nil)).Elem()
}

func kindOf[R Resource]() Kind {
	var zero R
	return zero.Kind()
}

// idLogger builds the per-call debug logger for an operation that
// targets a single (kind, id) pair: spec.md §2's "component,
// resource_kind, resource_id" fields together on every insert/remove/
// get log line.
func idLogger(kind Kind, id ID) zerolog.Logger {
	return log.WithResourceID(id.String()).With().
		Str("resource_kind", string(kind)).
		Str("component", "resource").
		Logger()
}

// kindLogger builds the per-call debug logger for an operation with no
// single id, such as List.
func kindLogger(kind Kind) zerolog.Logger {
	return log.WithResourceKind(string(kind)).With().
		Str("component", "resource").
		Logger()
}

// Insert stores value under id, overwriting any existing value for
// the same (kind, id) pair — spec.md's insert is an upsert, matching
// original_source's HashMap::insert semantics. If R also implements
// Persistable, Validate is called first and a failure is reported as
// rerr.ErrInvalidInput.
func Insert[R Resource](s Store, id ID, value R) error {
	kind := value.Kind()
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, string(kind), "insert")
	logger := idLogger(kind, id)
	if p, ok := any(value).(Persistable); ok {
		if err := p.Validate(); err != nil {
			metrics.ObserveOperation(string(kind), "insert", false)
			logger.Debug().Err(err).Msg("insert rejected")
			return rerr.Wrap(rerr.OpInsert, string(kind), id.String(), rerr.ErrInvalidInput, err)
		}
	}
	if err := s.InsertAny(kind, typeOf[R](), id, value); err != nil {
		metrics.ObserveOperation(string(kind), "insert", false)
		logger.Debug().Err(err).Msg("insert failed")
		return rerr.Wrap(rerr.OpInsert, string(kind), id.String(), rerr.ErrBackend, err)
	}
	metrics.ObserveOperation(string(kind), "insert", true)
	logger.Debug().Msg("insert committed")
	return nil
}

// Remove deletes the value stored under id, if any, and returns it.
// found is false and no error is returned when id was never present
// (spec.md's resolved Open Question: a no-op remove is silent).
func Remove[R Resource](s Store, id ID) (value R, found bool, err error) {
	kind := kindOf[R]()
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, string(kind), "remove")
	logger := idLogger(kind, id)
	raw, found, err := s.RemoveAny(kind, typeOf[R](), id)
	if err != nil {
		metrics.ObserveOperation(string(kind), "remove", false)
		logger.Debug().Err(err).Msg("remove failed")
		return value, false, rerr.Wrap(rerr.OpRemove, string(kind), id.String(), rerr.ErrBackend, err)
	}
	if !found {
		metrics.ObserveOperation(string(kind), "remove", true)
		logger.Debug().Msg("remove no-op, not found")
		return value, false, nil
	}
	typed, ok := raw.(R)
	if !ok {
		metrics.ObserveOperation(string(kind), "remove", false)
		logger.Debug().Msg("remove decode failed")
		return value, false, rerr.New(rerr.OpRemove, string(kind), id.String(), rerr.ErrDecode)
	}
	metrics.ObserveOperation(string(kind), "remove", true)
	logger.Debug().Msg("remove committed")
	return typed, true, nil
}

// Get returns the value stored under id. found is false with a nil
// error when id is unknown; callers wanting rerr.ErrNotFound as an
// error should use MustGet.
func Get[R Resource](s Store, id ID) (value R, found bool, err error) {
	kind := kindOf[R]()
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, string(kind), "get")
	logger := idLogger(kind, id)
	raw, found, err := s.GetAny(kind, typeOf[R](), id)
	if err != nil {
		metrics.ObserveOperation(string(kind), "get", false)
		logger.Debug().Err(err).Msg("get failed")
		return value, false, rerr.Wrap(rerr.OpGet, string(kind), id.String(), rerr.ErrBackend, err)
	}
	if !found {
		metrics.ObserveOperation(string(kind), "get", true)
		logger.Debug().Msg("get not found")
		return value, false, nil
	}
	typed, ok := raw.(R)
	if !ok {
		metrics.ObserveOperation(string(kind), "get", false)
		logger.Debug().Msg("get decode failed")
		return value, false, rerr.New(rerr.OpGet, string(kind), id.String(), rerr.ErrDecode)
	}
	metrics.ObserveOperation(string(kind), "get", true)
	logger.Debug().Msg("get succeeded")
	return typed, true, nil
}

// MustGet is Get with ErrNotFound surfaced as an error, matching the
// ergonomics of callers that want a single error-checked round trip
// (spec.md §7 NotFound).
func MustGet[R Resource](s Store, id ID) (R, error) {
	value, found, err := Get[R](s, id)
	if err != nil {
		return value, err
	}
	if !found {
		return value, rerr.New(rerr.OpGet, string(kindOf[R]()), id.String(), rerr.ErrNotFound)
	}
	return value, nil
}

// List returns every value of kind R currently stored, keyed by id.
func List[R Resource](s Store) (map[ID]R, error) {
	kind := kindOf[R]()
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.OperationDuration, string(kind), "list")
	logger := kindLogger(kind)
	raw, err := s.ListAny(kind, typeOf[R]())
	if err != nil {
		metrics.ObserveOperation(string(kind), "list", false)
		logger.Debug().Err(err).Msg("list failed")
		return nil, rerr.Wrap(rerr.OpList, string(kind), "", rerr.ErrBackend, err)
	}
	out := make(map[ID]R, len(raw))
	for id, v := range raw {
		typed, ok := v.(R)
		if !ok {
			metrics.ObserveOperation(string(kind), "list", false)
			logger.Debug().Str("resource_id", id.String()).Msg("list decode failed")
			return nil, rerr.New(rerr.OpList, string(kind), id.String(), rerr.ErrDecode)
		}
		out[id] = typed
	}
	metrics.ObserveOperation(string(kind), "list", true)
	logger.Debug().Int("count", len(out)).Msg("list succeeded")
	return out, nil
}

// Contains reports whether id is present for kind R without
// decoding the stored value.
func Contains[R Resource](s Store, id ID) (bool, error) {
	kind := kindOf[R]()
	_, found, err := s.GetAny(kind, typeOf[R](), id)
	if err != nil {
		metrics.ObserveOperation(string(kind), "contains", false)
		idLogger(kind, id).Debug().Err(err).Msg("contains failed")
		return false, fmt.Errorf("resource: contains %s %s: %w", kind, id, err)
	}
	metrics.ObserveOperation(string(kind), "contains", true)
	return found, nil
}
