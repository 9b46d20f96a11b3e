package resource_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/rerr"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/storage"
)

type widget struct {
	Name string
}

func (widget) Kind() resource.Kind { return "widget" }

func (w widget) Validate() error {
	if w.Name == "" {
		return errors.New("widget: name must not be empty")
	}
	return nil
}

var _ resource.Persistable = widget{}

type gadget struct {
	Count int
}

func (gadget) Kind() resource.Kind { return "gadget" }

func newStore() resource.Store {
	return storage.NewVolatileStore()
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := newStore()
	id := resource.NewID()

	require.NoError(t, resource.Insert(s, id, widget{Name: "sprocket"}))

	got, found, err := resource.Get[widget](s, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, widget{Name: "sprocket"}, got)
}

func TestInsertRunsValidate(t *testing.T) {
	s := newStore()
	err := resource.Insert(s, resource.NewID(), widget{})
	require.Error(t, err)
	assert.ErrorIs(t, err, rerr.ErrInvalidInput)
}

func TestInsertIsUpsert(t *testing.T) {
	s := newStore()
	id := resource.NewID()
	require.NoError(t, resource.Insert(s, id, widget{Name: "first"}))
	require.NoError(t, resource.Insert(s, id, widget{Name: "second"}))

	got, found, err := resource.Get[widget](s, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", got.Name)
}

func TestGetMissingIsNotAnError(t *testing.T) {
	s := newStore()
	_, found, err := resource.Get[widget](s, resource.NewID())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMustGetMissingReturnsNotFound(t *testing.T) {
	s := newStore()
	_, err := resource.MustGet[widget](s, resource.NewID())
	require.Error(t, err)
	assert.ErrorIs(t, err, rerr.ErrNotFound)
}

func TestRemoveNoOpWhenAbsent(t *testing.T) {
	s := newStore()
	_, found, err := resource.Remove[widget](s, resource.NewID())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRemoveReturnsLastValue(t *testing.T) {
	s := newStore()
	id := resource.NewID()
	require.NoError(t, resource.Insert(s, id, widget{Name: "sprocket"}))

	removed, found, err := resource.Remove[widget](s, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "sprocket", removed.Name)

	_, found, err = resource.Get[widget](s, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListReturnsOnlyMatchingKind(t *testing.T) {
	s := newStore()
	widgetID := resource.NewID()
	gadgetID := resource.NewID()
	require.NoError(t, resource.Insert(s, widgetID, widget{Name: "sprocket"}))
	require.NoError(t, resource.Insert(s, gadgetID, gadget{Count: 3}))

	widgets, err := resource.List[widget](s)
	require.NoError(t, err)
	assert.Len(t, widgets, 1)
	assert.Equal(t, "sprocket", widgets[widgetID].Name)

	gadgets, err := resource.List[gadget](s)
	require.NoError(t, err)
	assert.Len(t, gadgets, 1)
	assert.Equal(t, 3, gadgets[gadgetID].Count)
}

func TestContains(t *testing.T) {
	s := newStore()
	id := resource.NewID()
	found, err := resource.Contains[widget](s, id)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, resource.Insert(s, id, widget{Name: "sprocket"}))
	found, err = resource.Contains[widget](s, id)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestPlainKindSkipsValidate(t *testing.T) {
	s := newStore()
	require.NoError(t, resource.Insert(s, resource.NewID(), gadget{Count: 0}))
}
