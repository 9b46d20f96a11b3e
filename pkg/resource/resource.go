/*
Package resource defines the trait layer every stored entity kind
implements, and the generic free functions (Go disallows generic
methods on concrete receivers) that give every backend a uniform
insert/get/list/remove surface.
*/
package resource

// Kind tags a resource type for bucket naming, metrics labelling and
// the reflect.Type-keyed volatile store.
type Kind string

// Resource is implemented by every stored entity kind. Kind must
// return the same constant for every instance of a given Go type.
type Resource interface {
	Kind() Kind
}

// Persistable marks a Resource as eligible for the persistent bbolt
// backend and requires it to validate its own invariants before an
// insert is accepted (spec.md §7 InvalidInput).
type Persistable interface {
	Resource
	Validate() error
}

// SubscribableMarker is embedded by a concrete resource kind to opt
// it into Subscribable. The marker method is unexported so a type
// cannot satisfy Subscribable by accident of structural typing — it
// must deliberately embed this marker, the way original_source's
// impl_subscribable! macro is invoked explicitly per kind.
type SubscribableMarker struct{}

func (SubscribableMarker) isSubscribable() {}

// Subscribable marks a Resource kind whose inserts/removes are fanned
// out over a subscription.Broadcaster. Not every Persistable kind is
// Subscribable (pkg/types.DeviceDescriptor, for instance).
type Subscribable interface {
	Resource
	isSubscribable()
}

// RevisionedMarker is embedded by a concrete resource kind to opt it
// into Revisioned, for the same deliberate-opt-in reason as
// SubscribableMarker.
type RevisionedMarker struct{}

func (RevisionedMarker) isRevisioned() {}

// Revisioned marks a Resource kind that participates in content-hash
// revision history (pkg/resource/history).
type Revisioned interface {
	Resource
	isRevisioned()
}
