package manager

import (
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/subscription"
)

// Tx is the handle passed to a Manager.Resources/ResourcesMut body. It
// wraps the backend's resource.Store for the duration of one
// transaction and, for a writable Tx, buffers the SubscriptionEvents
// the body's mutations should raise once the backend transaction
// commits successfully.
//
// Go cannot express this as a generic method set the way
// original_source's ResourcesStorageApi trait is implemented by both
// PersistentResourcesStorage and PersistentResourcesTransaction, so
// Insert/Remove/Get/List below are free functions parameterized over
// R, exactly like their pkg/resource counterparts, but also recording
// subscription events where resource.Store alone cannot.
type Tx struct {
	store    resource.Store
	readOnly bool
	pending  []func(*subscription.Channels)
}

func (tx *Tx) record(fn func(*subscription.Channels)) {
	if tx.readOnly {
		// Mirrors original_source's debug_assert!(relayed_subscription_events.is_empty())
		// inside PersistentResourcesStorage::resources: a read-only
		// transaction must never observe a write.
		panic("manager: subscription event recorded from a read-only transaction")
	}
	tx.pending = append(tx.pending, fn)
}

// Insert stores value under id and, if R is Subscribable, buffers an
// Inserted event to be published once the enclosing transaction
// commits. Plain (non-revisioned) kinds always emit, even when value
// is identical to what was already stored — spec.md's resolved Open
// Question for the generic insert path.
func Insert[R resource.Resource](tx *Tx, id resource.ID, value R) error {
	if err := resource.Insert[R](tx.store, id, value); err != nil {
		return err
	}
	if _, ok := any(value).(resource.Subscribable); ok {
		tx.record(func(c *subscription.Channels) {
			subscription.Publish[R](c, subscription.SubscriptionEvent[R]{
				EventKind: subscription.Inserted,
				ID:        id,
				Value:     value,
			})
		})
	}
	return nil
}

// Remove deletes the value stored under id, if any, and buffers a
// Removed event carrying the last value. A no-op remove (id was not
// present) raises no event, per spec.md's resolved Open Question.
func Remove[R resource.Resource](tx *Tx, id resource.ID) (value R, found bool, err error) {
	value, found, err = resource.Remove[R](tx.store, id)
	if err != nil || !found {
		return value, found, err
	}
	if _, ok := any(value).(resource.Subscribable); ok {
		tx.record(func(c *subscription.Channels) {
			subscription.Publish[R](c, subscription.SubscriptionEvent[R]{
				EventKind: subscription.Removed,
				ID:        id,
				Value:     value,
			})
		})
	}
	return value, true, nil
}

// Get reads the value stored under id.
func Get[R resource.Resource](tx *Tx, id resource.ID) (R, bool, error) {
	return resource.Get[R](tx.store, id)
}

// MustGet is Get with a missing id reported as rerr.ErrNotFound.
func MustGet[R resource.Resource](tx *Tx, id resource.ID) (R, error) {
	return resource.MustGet[R](tx.store, id)
}

// List returns every currently stored value of kind R.
func List[R resource.Resource](tx *Tx) (map[resource.ID]R, error) {
	return resource.List[R](tx.store)
}
