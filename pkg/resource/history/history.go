/*
Package history implements content-addressed revision chains for
Revisioned resource kinds: every commit hashes the resource's canonical
JSON encoding into a Hash (stored kinds carry no revision field, so
nothing is zeroed first), and chains that hash to the parent it was
committed against, mirroring the
content-hash revisioning pattern named in spec.md §4.6/§9 and grounded
in original_source's per-kind persistence model.
*/
package history

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/rerr"
)

// Hash is the 128-bit content address of one committed revision,
// truncated from a SHA-256 digest to match spec.md's 128-bit
// Revision fields.
type Hash [16]byte

// Root is the sentinel "no revision yet" hash, supplied as the parent
// of the very first commit for a given (kind, id).
var Root Hash

func (h Hash) IsRoot() bool {
	return h == Root
}

// Revision names one entry in a chain: the hash of the value it was
// computed from, and the hash of the revision it was committed on top
// of (Root for the first revision).
type Revision struct {
	Current Hash
	Parent  Hash
}

// HashOf computes the content address of value: its canonical JSON
// encoding (Go's encoding/json sorts map keys and preserves struct
// field order, which is exactly the determinism content addressing
// needs), hashed with SHA-256 and truncated to 16 bytes. Revision
// chaining lives entirely in Ring, alongside the stored value rather
// than inside it, so there is no self-referential field to strip
// before hashing.
func HashOf(value any) (Hash, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return Hash{}, rerr.Wrap(rerr.OpCommit, "history", "", rerr.ErrSerialization, err)
	}
	sum := sha256.Sum256(data)
	var h Hash
	copy(h[:], sum[:16])
	return h, nil
}

// entry is one ring slot: the revision metadata plus its encoded
// value, kept together so eviction never has to look the value up
// elsewhere.
type entry struct {
	revision Revision
	data     []byte
}

// Ring is a fixed-capacity history of the last N revisions committed
// for a single (kind, id) pair. The zero value is not usable; use
// NewRing.
type Ring struct {
	capacity int
	entries  []entry      // ordered oldest to newest
	index    map[Hash]int // Current hash -> position in entries, only valid entries
	head     Hash
}

// NewRing returns an empty ring retaining at most capacity revisions.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{capacity: capacity, index: make(map[Hash]int)}
}

// Head returns the hash of the most recently committed revision, or
// Root if nothing has been committed yet.
func (r *Ring) Head() Hash {
	return r.head
}

// Commit records a new revision built from value, asserting it was
// built on top of parent. parent must equal the ring's current Head:
// ErrInvalidParentRevision if it names a real but stale revision,
// ErrUnknownParentRevision if it names a hash this ring never held
// (including Root when a head already exists).
func (r *Ring) Commit(parent Hash, value any) (Revision, error) {
	if parent != r.head {
		if parent.IsRoot() && !r.head.IsRoot() {
			return Revision{}, rerr.New(rerr.OpCommit, "history", "", rerr.ErrUnknownParentRevision)
		}
		if _, known := r.index[parent]; !known && !parent.IsRoot() {
			return Revision{}, rerr.New(rerr.OpCommit, "history", "", rerr.ErrUnknownParentRevision)
		}
		return Revision{}, rerr.New(rerr.OpCommit, "history", "", rerr.ErrInvalidParentRevision)
	}

	current, err := HashOf(value)
	if err != nil {
		return Revision{}, err
	}
	rev := Revision{Current: current, Parent: parent}

	data, err := json.Marshal(value)
	if err != nil {
		return Revision{}, rerr.Wrap(rerr.OpCommit, "history", "", rerr.ErrSerialization, err)
	}

	if len(r.entries) == r.capacity {
		evicted := r.entries[0]
		delete(r.index, evicted.revision.Current)
		r.entries = r.entries[1:]
		r.shiftIndex()
	}
	r.entries = append(r.entries, entry{revision: rev, data: data})
	r.index[current] = len(r.entries) - 1
	r.head = current
	return rev, nil
}

func (r *Ring) shiftIndex() {
	for h, i := range r.index {
		r.index[h] = i - 1
	}
}

// At returns the decoded value committed at hash, if still retained.
func (r *Ring) At(hash Hash, out any) (Revision, bool, error) {
	i, ok := r.index[hash]
	if !ok {
		return Revision{}, false, nil
	}
	e := r.entries[i]
	if err := json.Unmarshal(e.data, out); err != nil {
		return Revision{}, false, rerr.Wrap(rerr.OpGet, "history", "", rerr.ErrDecode, err)
	}
	return e.revision, true, nil
}

// Len reports how many revisions are currently retained.
func (r *Ring) Len() int {
	return len(r.entries)
}

// Clone returns a copy of r that can be committed to independently of
// r — used by pkg/manager.CommitRevision to validate a candidate
// commit and compute the snapshot it would persist before the
// transaction it runs in is known to succeed, so a failure after the
// speculative commit never leaves r itself ahead of what actually made
// it to the backend.
func (r *Ring) Clone() *Ring {
	clone := &Ring{capacity: r.capacity, head: r.head}
	clone.entries = append([]entry(nil), r.entries...)
	clone.index = make(map[Hash]int, len(r.index))
	for h, i := range r.index {
		clone.index[h] = i
	}
	return clone
}

// ringSnapshot is Ring's on-disk shape, written to the persistent
// backend's "<kind>__history" bucket (spec.md §5.6) so revision
// history for Revisioned kinds survives a restart the same way the
// resources themselves do.
type ringSnapshot struct {
	Head    Hash            `json:"head"`
	Entries []entrySnapshot `json:"entries"`
}

type entrySnapshot struct {
	Revision Revision        `json:"revision"`
	Data     json.RawMessage `json:"data"`
}

// Snapshot serializes r's retained entries and head for persistence
// alongside the backend's own resource buckets.
func (r *Ring) Snapshot() ([]byte, error) {
	snap := ringSnapshot{Head: r.head}
	for _, e := range r.entries {
		snap.Entries = append(snap.Entries, entrySnapshot{Revision: e.revision, Data: e.data})
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, rerr.Wrap(rerr.OpCommit, "history", "", rerr.ErrSerialization, err)
	}
	return data, nil
}

// Restore rebuilds a Ring of the given capacity from data previously
// produced by Snapshot, keeping only the newest capacity entries if
// the binary's configured history length has since shrunk.
func Restore(capacity int, data []byte) (*Ring, error) {
	var snap ringSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, rerr.Wrap(rerr.OpGet, "history", "", rerr.ErrDecode, err)
	}
	if len(snap.Entries) > capacity && capacity > 0 {
		snap.Entries = snap.Entries[len(snap.Entries)-capacity:]
	}
	r := NewRing(capacity)
	for _, es := range snap.Entries {
		r.entries = append(r.entries, entry{revision: es.Revision, data: es.Data})
		r.index[es.Revision.Current] = len(r.entries) - 1
	}
	r.head = snap.Head
	return r, nil
}
