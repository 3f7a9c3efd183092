package inputs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldui/domain/config"
)

func TestStore_SetAndGet(t *testing.T) {
	s := NewStore(nil)

	require.NoError(t, s.Set("notes", "job-1", "replaced bait"))

	v, ok := s.Get("notes", "job-1")
	require.True(t, ok)
	assert.Equal(t, "replaced bait", v.Raw())

	// Same valueKey under another entity is a different slot
	_, ok = s.Get("notes", "job-2")
	assert.False(t, ok)

	// Setting again replaces
	require.NoError(t, s.Set("notes", "job-1", "second visit"))
	v, _ = s.Get("notes", "job-1")
	assert.Equal(t, "second visit", v.Raw())
}

func TestStore_Validation(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxInputValueLength = 4

	s := NewStore(cfg)

	assert.Error(t, s.Set("", "job-1", "x"))
	assert.Error(t, s.Set("notes", "job-1", "too long"))
	assert.Equal(t, 0, s.Len())
}

func TestStore_DeleteAndClear(t *testing.T) {
	s := NewStore(nil)

	require.NoError(t, s.Set("notes", "job-1", "a"))
	require.NoError(t, s.Set("qty", "job-1", float64(2)))
	require.NoError(t, s.Set("notes", "job-2", "b"))
	assert.Equal(t, 3, s.Len())

	s.Delete("notes", "job-1")
	_, ok := s.Get("notes", "job-1")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())

	s.ClearEntity("job-1")
	_, ok = s.Get("qty", "job-1")
	assert.False(t, ok)

	// Other entities untouched
	_, ok = s.Get("notes", "job-2")
	assert.True(t, ok)
}

func TestStore_ValuesForEntity(t *testing.T) {
	s := NewStore(nil)

	require.NoError(t, s.Set("notes", "job-1", "done"))
	require.NoError(t, s.Set("signed", "job-1", true))
	require.NoError(t, s.Set("notes", "job-2", "other"))

	values := s.ValuesForEntity("job-1")
	assert.Equal(t, map[string]interface{}{
		"notes":  "done",
		"signed": true,
	}, values)

	assert.Empty(t, s.ValuesForEntity("job-9"))
}
