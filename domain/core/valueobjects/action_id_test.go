package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewActionID(t *testing.T) {
	id := NewActionID()
	assert.False(t, id.IsZero())
	assert.NotEmpty(t, id.String())

	other := NewActionID()
	assert.False(t, id.Equals(other))
}

func TestNewActionIDFromString(t *testing.T) {
	id := NewActionID()

	parsed, err := NewActionIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equals(id))

	_, err = NewActionIDFromString("")
	assert.Error(t, err)

	_, err = NewActionIDFromString("not-a-uuid")
	assert.Error(t, err)
}

func TestActionID_JSONRoundTrip(t *testing.T) {
	id := NewActionID()

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"`+id.String()+`"`, string(data))

	var decoded ActionID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equals(id))

	require.NoError(t, json.Unmarshal([]byte("null"), &decoded))
	assert.True(t, decoded.Equals(id), "null leaves the value untouched")

	assert.Error(t, json.Unmarshal([]byte("42"), &decoded))
}
