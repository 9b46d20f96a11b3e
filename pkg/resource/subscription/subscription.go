package subscription

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/eclipse-opendut/opendut-sub003/pkg/metrics"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/rerr"
)

// EventKind tags a SubscriptionEvent as an insert or a remove,
// standing in for original_source's SubscriptionEvent<R> enum
// (Inserted{id,value} / Removed{id,value}).
type EventKind string

const (
	Inserted EventKind = "inserted"
	Removed  EventKind = "removed"
)

// SubscriptionEvent is delivered to every subscriber of kind R after
// a transaction that touched id commits. Value holds the inserted
// value for Inserted, and the last known value for Removed.
type SubscriptionEvent[R resource.Resource] struct {
	EventKind EventKind
	ID        resource.ID
	Value     R
}

func (e SubscriptionEvent[R]) String() string {
	return fmt.Sprintf("%s(%s, %s)", e.EventKind, e.ID, e.Value.Kind())
}

// Channels owns one Broadcaster per Subscribable resource kind,
// created lazily on first Subscribe/Publish — the Go equivalent of
// original_source's ResourceSubscriptionChannels, which holds one
// broadcast::Sender per kind behind an impl_subscribable! macro.
type Channels struct {
	mu           sync.Mutex
	capacity     uint64
	broadcasters map[reflect.Type]any // reflect.Type -> *Broadcaster[SubscriptionEvent[R]]
}

// NewChannels returns an empty bundle. capacity bounds each kind's
// Broadcaster (spec.md §4.5/§6, default 100).
func NewChannels(capacity uint64) *Channels {
	return &Channels{capacity: capacity, broadcasters: make(map[reflect.Type]any)}
}

func broadcasterFor[R resource.Resource](c *Channels) *Broadcaster[SubscriptionEvent[R]] {
	var zero R
	typ := reflect.TypeOf(zero)
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.broadcasters[typ]; ok {
		return existing.(*Broadcaster[SubscriptionEvent[R]])
	}
	b := NewBroadcaster[SubscriptionEvent[R]](c.capacity)
	c.broadcasters[typ] = b
	return b
}

// Publish fans event out to every current and future subscriber of
// kind R.
func Publish[R resource.Resource](c *Channels, event SubscriptionEvent[R]) {
	broadcasterFor[R](c).Publish(event)
}

// ResourceSubscription is one subscriber's cursor into a single
// resource kind's Broadcaster. It wraps Subscription so a Lagged
// delivery is additionally reported into pkg/metrics by kind —
// Broadcaster itself stays metrics-free, since it's a general-purpose
// primitive with no notion of a resource kind.
type ResourceSubscription[R resource.Resource] struct {
	inner *Subscription[SubscriptionEvent[R]]
	kind  string
}

// Receive blocks until the next event, a Lagged report, or ctx
// cancellation, exactly like the wrapped Subscription.Receive.
func (s *ResourceSubscription[R]) Receive(ctx context.Context) (SubscriptionEvent[R], error) {
	event, err := s.inner.Receive(ctx)
	var lagged *rerr.Lagged
	if errors.As(err, &lagged) {
		metrics.ObserveLagged(s.kind)
	}
	return event, err
}

// Subscribe returns a cursor that observes every SubscriptionEvent[R]
// published from this call onward.
func Subscribe[R resource.Resource](c *Channels) *ResourceSubscription[R] {
	return &ResourceSubscription[R]{
		inner: broadcasterFor[R](c).Subscribe(),
		kind:  string(kindOf[R]()),
	}
}

func kindOf[R resource.Resource]() resource.Kind {
	var zero R
	return zero.Kind()
}

// Close closes every broadcaster created so far, waking any blocked
// subscriber with rerr.ErrCancelled. One goroutine per kind, fanned
// out with errgroup the way Manager.Close needs to shut down an
// arbitrary number of live per-kind broadcasters without waiting on
// them one at a time.
func (c *Channels) Close() {
	c.mu.Lock()
	broadcasters := make([]any, 0, len(c.broadcasters))
	for _, b := range c.broadcasters {
		broadcasters = append(broadcasters, b)
	}
	c.mu.Unlock()

	var g errgroup.Group
	for _, b := range broadcasters {
		closer, ok := b.(interface{ Close() })
		if !ok {
			continue
		}
		g.Go(func() error {
			closer.Close()
			return nil
		})
	}
	_ = g.Wait()
}

// Kinds returns the reflect.Type of every kind that has had a
// Broadcaster created, for metrics collection (live-subscription
// gauge).
func (c *Channels) Kinds() []reflect.Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]reflect.Type, 0, len(c.broadcasters))
	for t := range c.broadcasters {
		out = append(out, t)
	}
	return out
}
