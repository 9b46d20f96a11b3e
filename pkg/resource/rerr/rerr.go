/*
Package rerr defines the error taxonomy returned from every resource
storage and manager operation.

All failures funnel through a small set of sentinels
(NotFound, InvalidInput, Conflict, InvalidParentRevision,
UnknownParentRevision, Backend, Serialization, Decode,
IncompatibleFormat, Cancelled) so callers can branch with errors.Is
regardless of which backend or layer produced the error. A
subscriber's lag is reported as the *Lagged type instead, matched with
errors.As. A
panic from this package indicates a programming invariant violation
(e.g. a downcast to the wrong resource kind), not an expected failure.
*/
package rerr

import (
	"errors"
	"fmt"
)

// Sentinels. Wrap these with fmt.Errorf("...: %w", ErrX) or via New/Wrap
// below; callers compare with errors.Is.
var (
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrConflict              = errors.New("conflict")
	ErrInvalidParentRevision = errors.New("invalid parent revision")
	ErrUnknownParentRevision = errors.New("unknown parent revision")
	ErrBackend               = errors.New("persistence backend error")
	ErrSerialization         = errors.New("serialization error")
	ErrDecode                = errors.New("decode error")
	ErrIncompatibleFormat    = errors.New("incompatible on-disk format")
	ErrCancelled             = errors.New("transaction cancelled")
)

// Op names an operation for error context, mirroring the teacher's
// practice of naming the failing call in wrapped errors.
type Op string

const (
	OpInsert Op = "insert"
	OpRemove Op = "remove"
	OpGet    Op = "get"
	OpList   Op = "list"
	OpCommit Op = "commit"
	OpOpen   Op = "open"
)

// Error carries the sentinel plus the resource kind/id context a caller
// needs to log or retry intelligently, the way common.EntityNotFoundError
// does in the pack's Lerian-Midaz example, adapted to this repo's
// kind/id vocabulary instead of EntityType/Code/Title.
type Error struct {
	Op   Op
	Kind string
	ID   string
	Err  error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error wrapping sentinel for the given operation/kind/id.
func New(op Op, kind string, id string, sentinel error) *Error {
	return &Error{Op: op, Kind: kind, ID: id, Err: sentinel}
}

// Wrap attaches operation/kind/id context to an arbitrary cause,
// tagging it with the given sentinel via errors.Join semantics so
// errors.Is(err, sentinel) still succeeds.
func Wrap(op Op, kind string, id string, sentinel error, cause error) *Error {
	if cause == nil {
		return New(op, kind, id, sentinel)
	}
	return &Error{Op: op, Kind: kind, ID: id, Err: fmt.Errorf("%w: %w", sentinel, cause)}
}

// Lagged is returned to a subscriber that fell behind the channel
// capacity. N is the number of events that were dropped before the
// oldest one still retained.
type Lagged struct {
	N uint64
}

func (e *Lagged) Error() string {
	return fmt.Sprintf("subscription lagged, missed %d events", e.N)
}
