package resource

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// ID is the 128-bit identifier shared by every resource kind, the Go
// analogue of original_source's opendut_types::util::Uuid newtype. It
// is always backed by a UUID on the wire, but callers hold the raw
// bytes so equality and map-keying never pay a string-parse cost.
type ID [16]byte

// RootID is the sentinel zero-value id, never assigned to a real
// resource. (pkg/resource/history marks "no parent revision yet" with
// its own zero-valued history.Root, not with this id.)
var RootID ID

// NewID generates a fresh random identifier (UUIDv4).
func NewID() ID {
	var id ID
	u, err := uuid.NewRandom()
	if err != nil {
		// crypto/rand failure; fall back to a process-local random
		// read rather than panicking, mirroring uuid.Must semantics
		// without killing the process on transient entropy hiccups.
		if _, readErr := rand.Read(id[:]); readErr != nil {
			panic(fmt.Sprintf("resource: failed to generate id: %v / %v", err, readErr))
		}
		return id
	}
	copy(id[:], u[:])
	return id
}

// IDFromUUID converts an existing uuid.UUID into an ID, for decoding
// identifiers that arrived over an API boundary.
func IDFromUUID(u uuid.UUID) ID {
	var id ID
	copy(id[:], u[:])
	return id
}

// ParseID parses the canonical UUID textual form.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("resource: parse id %q: %w", s, err)
	}
	return IDFromUUID(u), nil
}

// UUID returns the identifier in its uuid.UUID wire/textual form.
func (id ID) UUID() uuid.UUID {
	var u uuid.UUID
	copy(u[:], id[:])
	return u
}

func (id ID) String() string {
	return id.UUID().String()
}

// IsRoot reports whether id is the zero-value sentinel.
func (id ID) IsRoot() bool {
	return id == RootID
}

// MarshalJSON renders the id in its canonical UUID textual form so
// persisted records and subscription events stay human-readable.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.String() + `"`), nil
}

// UnmarshalJSON accepts the canonical UUID textual form.
func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("resource: invalid id literal %q", data)
	}
	parsed, err := ParseID(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
