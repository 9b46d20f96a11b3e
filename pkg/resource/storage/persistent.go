package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/rerr"
)

// formatVersion is bumped whenever the on-disk bucket/record layout
// changes in an incompatible way. OpenPersistent refuses to open a
// database stamped with a different version.
const formatVersion uint32 = 1

// formatMagic is stored under magicKey in the metadata bucket to mark
// the file as written by this package; OpenPersistent checks it on
// every reopen.
const formatMagic = "opendut-carl-resource-store"

var metadataBucket = []byte("__core_metadata__")
var metadataKey = []byte("format")
var magicKey = []byte("magic")

type metadataRecord struct {
	FormatVersion uint32    `json:"format_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// PersistentBackend is a go.etcd.io/bbolt database with a VolatileStore
// used as a write-through cache, the literal shape of original_source's
// PersistentResourcesStorage{ db: redb::Database, memory: Memory }.
type PersistentBackend struct {
	db    *bolt.DB
	cache *VolatileStore
}

// OpenPersistent opens (creating if absent) the bbolt database at
// path, the way pkg/storage.NewBoltStore opens warren.db, validating
// the format tag on reopen.
func OpenPersistent(path string) (*PersistentBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, rerr.Wrap(rerr.OpOpen, "backend", path, rerr.ErrBackend, err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, rerr.Wrap(rerr.OpOpen, "backend", path, rerr.ErrBackend, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(metadataBucket)
		if err != nil {
			return err
		}
		existing := b.Get(metadataKey)
		if existing == nil {
			data, err := json.Marshal(metadataRecord{FormatVersion: formatVersion, CreatedAt: time.Now()})
			if err != nil {
				return err
			}
			if err := b.Put(metadataKey, data); err != nil {
				return err
			}
			return b.Put(magicKey, []byte(formatMagic))
		}
		var rec metadataRecord
		if err := json.Unmarshal(existing, &rec); err != nil {
			return fmt.Errorf("decode metadata record: %w", err)
		}
		if rec.FormatVersion != formatVersion {
			return fmt.Errorf("on-disk format version %d, binary expects %d", rec.FormatVersion, formatVersion)
		}
		if string(b.Get(magicKey)) != formatMagic {
			return fmt.Errorf("missing or unexpected magic header %q", b.Get(magicKey))
		}
		return nil
	}); err != nil {
		db.Close()
		if _, ok := err.(*rerr.Error); ok {
			return nil, err
		}
		return nil, rerr.Wrap(rerr.OpOpen, "backend", path, rerr.ErrIncompatibleFormat, err)
	}

	return &PersistentBackend{db: db, cache: NewVolatileStore()}, nil
}

// Close closes the underlying database.
func (b *PersistentBackend) Close() error {
	return b.db.Close()
}

// View runs fn against a read-only transaction. fn must not mutate
// state; any resource.Store calls it makes that would write return an
// error from the underlying bbolt read-only transaction.
func (b *PersistentBackend) View(fn func(resource.Store) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return fn(&persistentTx{tx: tx})
	})
}

// Update runs fn against a writable transaction. If fn returns nil,
// the bbolt transaction commits and the write-through cache is
// updated with exactly the mutations fn made; if fn returns an error,
// bbolt rolls the transaction back and the cache is left untouched.
func (b *PersistentBackend) Update(fn func(resource.Store) error) error {
	ptx := &persistentTx{tx: nil, writable: true}
	err := b.db.Update(func(tx *bolt.Tx) error {
		ptx.tx = tx
		return fn(ptx)
	})
	if err != nil {
		return err
	}
	for _, apply := range ptx.pending {
		apply(b.cache)
	}
	return nil
}

// persistentTx implements resource.Store against one *bolt.Tx. bbolt
// already guarantees a write transaction observes its own uncommitted
// writes and that concurrent readers see only the last commit, which
// is exactly the isolation spec.md §4.3 requires.
type persistentTx struct {
	tx       *bolt.Tx
	writable bool
	pending  []func(*VolatileStore)
}

func bucketFor(tx *bolt.Tx, kind resource.Kind, create bool) (*bolt.Bucket, error) {
	name := []byte(kind)
	if create {
		return tx.CreateBucketIfNotExists(name)
	}
	return tx.Bucket(name), nil
}

// historyBucketFor returns the "<kind>__history" bucket that holds one
// serialized history.Ring snapshot per id, kept separate from kind's
// own resource bucket (spec.md §5.6).
func historyBucketFor(tx *bolt.Tx, kind resource.Kind, create bool) (*bolt.Bucket, error) {
	name := []byte(string(kind) + "__history")
	if create {
		return tx.CreateBucketIfNotExists(name)
	}
	return tx.Bucket(name), nil
}

func decodeValue(typ reflect.Type, data []byte) (any, error) {
	ptr := reflect.New(typ)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

func (t *persistentTx) InsertAny(kind resource.Kind, typ reflect.Type, id resource.ID, value any) error {
	bucket, err := bucketFor(t.tx, kind, true)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", rerr.ErrSerialization, err)
	}
	if err := bucket.Put(id[:], data); err != nil {
		return err
	}
	t.pending = append(t.pending, func(cache *VolatileStore) {
		_ = cache.InsertAny(kind, typ, id, value)
	})
	return nil
}

func (t *persistentTx) RemoveAny(kind resource.Kind, typ reflect.Type, id resource.ID) (any, bool, error) {
	bucket, err := bucketFor(t.tx, kind, false)
	if err != nil {
		return nil, false, err
	}
	if bucket == nil {
		return nil, false, nil
	}
	data := bucket.Get(id[:])
	if data == nil {
		return nil, false, nil
	}
	value, err := decodeValue(typ, data)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", rerr.ErrDecode, err)
	}
	if err := bucket.Delete(id[:]); err != nil {
		return nil, false, err
	}
	t.pending = append(t.pending, func(cache *VolatileStore) {
		_, _, _ = cache.RemoveAny(kind, typ, id)
	})
	return value, true, nil
}

func (t *persistentTx) GetAny(kind resource.Kind, typ reflect.Type, id resource.ID) (any, bool, error) {
	bucket, err := bucketFor(t.tx, kind, false)
	if err != nil {
		return nil, false, err
	}
	if bucket == nil {
		return nil, false, nil
	}
	data := bucket.Get(id[:])
	if data == nil {
		return nil, false, nil
	}
	value, err := decodeValue(typ, data)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", rerr.ErrDecode, err)
	}
	return value, true, nil
}

func (t *persistentTx) ListAny(kind resource.Kind, typ reflect.Type) (map[resource.ID]any, error) {
	bucket, err := bucketFor(t.tx, kind, false)
	if err != nil {
		return nil, err
	}
	out := make(map[resource.ID]any)
	if bucket == nil {
		return out, nil
	}
	err = bucket.ForEach(func(k, v []byte) error {
		var id resource.ID
		copy(id[:], k)
		value, err := decodeValue(typ, v)
		if err != nil {
			return fmt.Errorf("%w: %v", rerr.ErrDecode, err)
		}
		out[id] = value
		return nil
	})
	return out, err
}

// PutHistory stores data, a history.Ring snapshot, under id in kind's
// history bucket, in the same bbolt transaction as the resource
// mutation that triggered it.
func (t *persistentTx) PutHistory(kind resource.Kind, id resource.ID, data []byte) error {
	bucket, err := historyBucketFor(t.tx, kind, true)
	if err != nil {
		return err
	}
	return bucket.Put(id[:], data)
}

// GetHistory returns the last history.Ring snapshot stored for id, if
// any. The returned slice is copied out of bbolt's memory-mapped page
// before the transaction that produced it closes.
func (t *persistentTx) GetHistory(kind resource.Kind, id resource.ID) ([]byte, bool, error) {
	bucket, err := historyBucketFor(t.tx, kind, false)
	if err != nil {
		return nil, false, err
	}
	if bucket == nil {
		return nil, false, nil
	}
	data := bucket.Get(id[:])
	if data == nil {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

var (
	_ resource.Store        = (*persistentTx)(nil)
	_ resource.HistoryStore = (*persistentTx)(nil)
)
