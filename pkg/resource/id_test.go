package resource

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsUnique(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsRoot())
}

func TestRootID(t *testing.T) {
	var zero ID
	assert.True(t, zero.IsRoot())
	assert.True(t, RootID.IsRoot())
	assert.False(t, NewID().IsRoot())
}

func TestIDStringParseRoundTrip(t *testing.T) {
	id := NewID()
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseIDRejectsGarbage(t *testing.T) {
	_, err := ParseID("not-a-uuid")
	assert.Error(t, err)
}

func TestIDJSONRoundTrip(t *testing.T) {
	id := NewID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var out ID
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, id, out)
}

func TestIDJSONUnmarshalRejectsInvalidLiteral(t *testing.T) {
	var out ID
	assert.Error(t, out.UnmarshalJSON([]byte("123")))
	assert.Error(t, out.UnmarshalJSON([]byte(`"nope"`)))
}

func TestIDFromUUIDRoundTrip(t *testing.T) {
	id := NewID()
	assert.Equal(t, id, IDFromUUID(id.UUID()))
}
