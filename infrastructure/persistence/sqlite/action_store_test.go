package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldui/domain/core/entities"
	"fieldui/domain/core/valueobjects"
	pkgerrors "fieldui/pkg/errors"
)

func newStore(t *testing.T) *ActionStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	store, err := NewActionStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newAction(t *testing.T, name string) *entities.PendingAction {
	t.Helper()
	action, err := entities.NewPendingAction(
		"device-1", "user-1", name, "job_detail", "job-42",
		map[string]interface{}{"notes": "replaced bait", "qty": float64(2)},
	)
	require.NoError(t, err)
	return action
}

func TestActionStore_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	action := newAction(t, "complete_job")
	require.NoError(t, store.Enqueue(ctx, action))

	got, err := store.Get(ctx, action.ID())
	require.NoError(t, err)

	assert.True(t, got.ID().Equals(action.ID()))
	assert.Equal(t, "device-1", got.DeviceID())
	assert.Equal(t, "user-1", got.UserID())
	assert.Equal(t, "complete_job", got.ActionName())
	assert.Equal(t, "job_detail", got.Screen())
	assert.Equal(t, "job-42", got.EntityID())
	assert.Equal(t, entities.StatusPending, got.Status())
	assert.Equal(t, map[string]interface{}{"notes": "replaced bait", "qty": float64(2)}, got.Payload())
	assert.WithinDuration(t, action.CreatedAt(), got.CreatedAt(), time.Millisecond)
	assert.True(t, got.SyncedAt().IsZero())
}

func TestActionStore_GetUnknown(t *testing.T) {
	store := newStore(t)
	_, err := store.Get(context.Background(), valueobjects.NewActionID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestActionStore_UpdatePersistsTransitions(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	action := newAction(t, "complete_job")
	require.NoError(t, store.Enqueue(ctx, action))

	require.NoError(t, action.BeginSync())
	require.NoError(t, action.MarkSynced())
	require.NoError(t, store.Update(ctx, action))

	got, err := store.Get(ctx, action.ID())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSynced, got.Status())
	assert.Equal(t, 1, got.Attempts())
	assert.False(t, got.SyncedAt().IsZero())

	// Updating an unknown action reports not found
	stranger := newAction(t, "x")
	assert.True(t, pkgerrors.IsNotFound(store.Update(ctx, stranger)))
}

func TestActionStore_NextPending(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first := newAction(t, "a")
	require.NoError(t, store.Enqueue(ctx, first))
	time.Sleep(2 * time.Millisecond)

	retryable := newAction(t, "b")
	require.NoError(t, store.Enqueue(ctx, retryable))
	require.NoError(t, retryable.BeginSync())
	require.NoError(t, retryable.MarkRetryable("timeout", nil))
	require.NoError(t, store.Update(ctx, retryable))

	time.Sleep(2 * time.Millisecond)
	synced := newAction(t, "c")
	require.NoError(t, store.Enqueue(ctx, synced))
	require.NoError(t, synced.BeginSync())
	require.NoError(t, synced.MarkSynced())
	require.NoError(t, store.Update(ctx, synced))

	pending, err := store.NextPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2, "pending and retryable, synced excluded")
	assert.True(t, pending[0].ID().Equals(first.ID()), "oldest first")
	assert.True(t, pending[1].ID().Equals(retryable.ID()))
	assert.Equal(t, "timeout", pending[1].LastError())

	limited, err := store.NextPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestActionStore_ListAndCount(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a := newAction(t, "a")
	b := newAction(t, "b")
	require.NoError(t, store.Enqueue(ctx, a))
	require.NoError(t, store.Enqueue(ctx, b))
	require.NoError(t, b.BeginSync())
	require.NoError(t, b.MarkSynced())
	require.NoError(t, store.Update(ctx, b))

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	synced, err := store.List(ctx, entities.StatusSynced, 0)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.True(t, synced[0].ID().Equals(b.ID()))

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entities.StatusPending])
	assert.Equal(t, 1, counts[entities.StatusSynced])
}

func TestActionStore_DeleteSynced(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var ids []valueobjects.ActionID
	for i := 0; i < 4; i++ {
		a := newAction(t, "a")
		require.NoError(t, store.Enqueue(ctx, a))
		require.NoError(t, a.BeginSync())
		require.NoError(t, a.MarkSynced())
		require.NoError(t, store.Update(ctx, a))
		ids = append(ids, a.ID())
		time.Sleep(2 * time.Millisecond)
	}

	removed, err := store.DeleteSynced(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// The two newest survive
	_, err = store.Get(ctx, ids[0])
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = store.Get(ctx, ids[3])
	assert.NoError(t, err)
}

func TestActionStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)

	action := newAction(t, "complete_job")
	require.NoError(t, store.Enqueue(ctx, action))
	require.NoError(t, store.Close())

	// A crash or restart later, the queue is still there
	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, action.ID())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusPending, got.Status())
	assert.Equal(t, "complete_job", got.ActionName())
}
