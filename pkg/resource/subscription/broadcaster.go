/*
Package subscription provides a bounded, multi-consumer broadcast
channel with explicit lag reporting, and the SubscriptionEvent
wrapper used to fan resource inserts/removes out to subscribers after
a transaction commits.

No dependency in the retrieval pack offers this contract (checked:
hashicorp/raft's internal channels and the teacher's pkg/events.Broker
are both unbounded-drop, not lag-reporting), so it is hand-built here
as the Go equivalent of tokio::sync::broadcast, which original_source
uses directly in resource/subscription.rs.
*/
package subscription

import (
	"context"
	"sync"

	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/rerr"
)

// Broadcaster is a fixed-capacity ring buffer of sequence-numbered
// events shared by every subscriber. A subscriber that falls more
// than capacity events behind the newest publish is reported Lagged
// and fast-forwarded to the oldest retained event, rather than
// blocking the publisher or silently dropping its view of history.
type Broadcaster[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity uint64
	next     uint64 // sequence number of the next Publish
	ring     []T    // ring[seq%capacity] holds the event with sequence number seq, for the last capacity sequence numbers
	filled   uint64 // number of Publish calls so far, capped implicitly by capacity via overwrite
	closed   bool
}

// NewBroadcaster returns a Broadcaster retaining the last capacity
// published events. capacity must be at least 1.
func NewBroadcaster[T any](capacity uint64) *Broadcaster[T] {
	if capacity == 0 {
		capacity = 1
	}
	b := &Broadcaster[T]{capacity: capacity, ring: make([]T, capacity)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Publish appends event as the newest entry, overwriting the oldest
// retained entry once the ring is full, and wakes any subscriber
// blocked in Receive.
func (b *Broadcaster[T]) Publish(event T) {
	b.mu.Lock()
	b.ring[b.next%b.capacity] = event
	b.next++
	if b.filled < b.capacity {
		b.filled++
	}
	b.mu.Unlock()
	b.cond.Broadcast()
}

// Close marks the broadcaster closed; blocked and future Receive
// calls return rerr.ErrCancelled once no further events remain
// buffered for the caller.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cond.Broadcast()
}

// oldestLocked returns the oldest sequence number still retained.
// b.mu must be held.
func (b *Broadcaster[T]) oldestLocked() uint64 {
	if b.next < b.capacity {
		return 0
	}
	return b.next - b.capacity
}

// Subscribe returns a Subscription starting at the next event
// published after this call, matching tokio::sync::broadcast's
// subscribe-then-receive-only-new-events contract.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Subscription[T]{broadcaster: b, cursor: b.next}
}

// Subscription is one subscriber's read cursor into a Broadcaster.
type Subscription[T any] struct {
	broadcaster *Broadcaster[T]
	cursor      uint64
}

// Receive blocks until the next event is available, the subscriber
// has fallen behind (rerr.Lagged), the broadcaster is closed, or ctx
// is done.
func (s *Subscription[T]) Receive(ctx context.Context) (T, error) {
	b := s.broadcaster

	// Wake blocked waiters when ctx is cancelled; cond.Wait has no
	// native context support.
	if ctx != nil && ctx.Done() != nil {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				b.cond.Broadcast()
			case <-stop:
			}
		}()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			default:
			}
		}

		oldest := b.oldestLocked()
		if s.cursor < oldest {
			missed := oldest - s.cursor
			s.cursor = oldest
			var zero T
			return zero, &rerr.Lagged{N: missed}
		}
		if s.cursor < b.next {
			event := b.ring[s.cursor%b.capacity]
			s.cursor++
			return event, nil
		}
		if b.closed {
			var zero T
			return zero, rerr.ErrCancelled
		}
		b.cond.Wait()
	}
}
