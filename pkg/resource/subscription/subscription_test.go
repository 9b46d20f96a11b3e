package subscription_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/subscription"
)

type connectionState struct {
	resource.SubscribableMarker
	Online bool
}

func (connectionState) Kind() resource.Kind { return "connectionState" }

// TestChannelsNotifiesAboutResourceInsertions mirrors original_source's
// should_notify_about_resource_insertions: a subscriber started before
// a publish observes the event with its correct kind and value.
func TestChannelsNotifiesAboutResourceInsertions(t *testing.T) {
	c := subscription.NewChannels(10)
	sub := subscription.Subscribe[connectionState](c)

	id := resource.NewID()
	subscription.Publish(c, subscription.SubscriptionEvent[connectionState]{
		EventKind: subscription.Inserted,
		ID:        id,
		Value:     connectionState{Online: true},
	})

	event, err := sub.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, subscription.Inserted, event.EventKind)
	assert.Equal(t, id, event.ID)
	assert.True(t, event.Value.Online)
}

func TestChannelsDeliversEventsInPublishOrder(t *testing.T) {
	c := subscription.NewChannels(10)
	sub := subscription.Subscribe[connectionState](c)

	idA, idB := resource.NewID(), resource.NewID()
	subscription.Publish(c, subscription.SubscriptionEvent[connectionState]{EventKind: subscription.Inserted, ID: idA, Value: connectionState{Online: true}})
	subscription.Publish(c, subscription.SubscriptionEvent[connectionState]{EventKind: subscription.Removed, ID: idB, Value: connectionState{Online: false}})

	first, err := sub.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, idA, first.ID)

	second, err := sub.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, idB, second.ID)
	assert.Equal(t, subscription.Removed, second.EventKind)
}

type peerDescriptorStub struct {
	resource.SubscribableMarker
	Name string
}

func (peerDescriptorStub) Kind() resource.Kind { return "peerDescriptorStub" }

func TestChannelsSeparatesBroadcastersByKind(t *testing.T) {
	c := subscription.NewChannels(10)
	connSub := subscription.Subscribe[connectionState](c)
	peerSub := subscription.Subscribe[peerDescriptorStub](c)

	subscription.Publish(c, subscription.SubscriptionEvent[connectionState]{EventKind: subscription.Inserted, ID: resource.NewID(), Value: connectionState{Online: true}})

	connEvent, err := connSub.Receive(context.Background())
	require.NoError(t, err)
	assert.True(t, connEvent.Value.Online)

	assert.ElementsMatch(t, c.Kinds(), []reflect.Type{
		reflect.TypeOf(connectionState{}),
		reflect.TypeOf(peerDescriptorStub{}),
	})

	// peerSub must never observe a connectionState publish.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = peerSub.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannelsCloseUnblocksSubscribers(t *testing.T) {
	c := subscription.NewChannels(10)
	sub := subscription.Subscribe[connectionState](c)

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Receive(context.Background())
		errCh <- err
	}()

	c.Close()
	err := <-errCh
	assert.Error(t, err)
}
