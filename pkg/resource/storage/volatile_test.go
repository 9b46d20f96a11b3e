package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/storage"
)

type thing struct {
	Value string
}

func (thing) Kind() resource.Kind { return "thing" }

func TestVolatileStoreIsEmptyInitially(t *testing.T) {
	s := storage.NewVolatileStore()
	assert.True(t, s.IsEmpty())
}

func TestVolatileStoreInsertGetRemove(t *testing.T) {
	s := storage.NewVolatileStore()
	id := resource.NewID()

	require.NoError(t, resource.Insert(s, id, thing{Value: "a"}))
	assert.False(t, s.IsEmpty())

	got, found, err := resource.Get[thing](s, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", got.Value)

	_, found, err = resource.Remove[thing](s, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, s.IsEmpty())
}

func TestVolatileStoreEmptyColumnIsPruned(t *testing.T) {
	s := storage.NewVolatileStore()
	idA := resource.NewID()
	idB := resource.NewID()

	require.NoError(t, resource.Insert(s, idA, thing{Value: "a"}))
	require.NoError(t, resource.Insert(s, idB, thing{Value: "b"}))

	_, _, err := resource.Remove[thing](s, idA)
	require.NoError(t, err)
	assert.False(t, s.IsEmpty())

	_, _, err = resource.Remove[thing](s, idB)
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
}

func TestVolatileStoreListIsIsolatedFromFutureMutation(t *testing.T) {
	s := storage.NewVolatileStore()
	id := resource.NewID()
	require.NoError(t, resource.Insert(s, id, thing{Value: "a"}))

	listed, err := resource.List[thing](s)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, resource.Insert(s, resource.NewID(), thing{Value: "b"}))
	assert.Len(t, listed, 1, "previously returned map must not observe later inserts")
}
