package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeEntity(t *testing.T, dir, scope, entityID, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, scope), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, scope, entityID+".json"), []byte(content), 0o644))
}

func TestEntityProvider_Snapshot(t *testing.T) {
	dir := t.TempDir()
	writeEntity(t, dir, "job", "J-1042", `{
		"customerName": "Acme Pest Co",
		"visitCount": 3,
		"active": true,
		"address": {"city": "Springfield", "zip": "62704"},
		"lineItems": [
			{"id": "li-1", "label": "Bait station", "qty": 4},
			{"id": "li-2", "label": "Gel treatment"},
			{"label": "No id row"}
		]
	}`)

	provider := NewEntityProvider(dir, zap.NewNop())
	snapshot, ok := provider.Snapshot(context.Background(), "job", "J-1042")
	require.True(t, ok)

	assert.Equal(t, "J-1042", snapshot.ID())

	v, ok := snapshot.Field("customerName")
	assert.True(t, ok)
	assert.Equal(t, "Acme Pest Co", v)

	v, ok = snapshot.Field("visitCount")
	assert.True(t, ok)
	assert.Equal(t, "3", v, "integral numbers render without decimal point")

	v, ok = snapshot.Field("active")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	// Dot paths descend into nested objects
	v, ok = snapshot.Field("address.city")
	assert.True(t, ok)
	assert.Equal(t, "Springfield", v)

	_, ok = snapshot.Field("address.street")
	assert.False(t, ok)
	_, ok = snapshot.Field("missing")
	assert.False(t, ok)
}

func TestEntityProvider_Items(t *testing.T) {
	dir := t.TempDir()
	writeEntity(t, dir, "job", "J-1042", `{
		"lineItems": [
			{"id": "li-1", "label": "Bait station"},
			{"label": "No id row"},
			"not an object"
		],
		"notAList": {"x": 1}
	}`)

	provider := NewEntityProvider(dir, zap.NewNop())
	snapshot, ok := provider.Snapshot(context.Background(), "job", "J-1042")
	require.True(t, ok)

	items, ok := snapshot.Items("lineItems")
	require.True(t, ok)
	require.Len(t, items, 2, "non-object rows are skipped")

	assert.Equal(t, "li-1", items[0].ID())
	label, _ := items[0].Field("label")
	assert.Equal(t, "Bait station", label)

	assert.Equal(t, "1", items[1].ID(), "rows without an id get their index")

	_, ok = snapshot.Items("notAList")
	assert.False(t, ok)
	_, ok = snapshot.Items("missing")
	assert.False(t, ok)
}

func TestEntityProvider_MissingOrMalformed(t *testing.T) {
	dir := t.TempDir()
	writeEntity(t, dir, "job", "bad", `not json`)

	provider := NewEntityProvider(dir, zap.NewNop())

	_, ok := provider.Snapshot(context.Background(), "job", "J-9999")
	assert.False(t, ok)

	_, ok = provider.Snapshot(context.Background(), "customer", "C-1")
	assert.False(t, ok)

	_, ok = provider.Snapshot(context.Background(), "job", "bad")
	assert.False(t, ok, "malformed snapshots read as absent")
}
