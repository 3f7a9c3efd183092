package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldui/domain/core/entities"
	"fieldui/domain/core/valueobjects"
	pkgerrors "fieldui/pkg/errors"
)

func newAction(t *testing.T, name string) *entities.PendingAction {
	t.Helper()
	action, err := entities.NewPendingAction("device-1", "user-1", name, "job_detail", "job-42", nil)
	require.NoError(t, err)
	return action
}

func syncAction(t *testing.T, action *entities.PendingAction) {
	t.Helper()
	require.NoError(t, action.BeginSync())
	require.NoError(t, action.MarkSynced())
}

func TestActionStore_EnqueueAndGet(t *testing.T) {
	store := NewActionStore()
	ctx := context.Background()

	action := newAction(t, "complete_job")
	require.NoError(t, store.Enqueue(ctx, action))

	got, err := store.Get(ctx, action.ID())
	require.NoError(t, err)
	assert.Equal(t, action.ID(), got.ID())

	// Enqueueing the same ID twice conflicts, replays must not duplicate
	err = store.Enqueue(ctx, action)
	assert.True(t, pkgerrors.IsConflict(err))

	_, err = store.Get(ctx, valueobjects.NewActionID())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestActionStore_NextPendingOrderAndFilter(t *testing.T) {
	store := NewActionStore()
	ctx := context.Background()

	first := newAction(t, "a")
	second := newAction(t, "b")
	third := newAction(t, "c")
	for _, a := range []*entities.PendingAction{first, second, third} {
		require.NoError(t, store.Enqueue(ctx, a))
	}

	syncAction(t, second)
	require.NoError(t, store.Update(ctx, second))

	pending, err := store.NextPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID(), pending[0].ID(), "oldest first")
	assert.Equal(t, third.ID(), pending[1].ID())

	limited, err := store.NextPending(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestActionStore_NextPendingIncludesRetryable(t *testing.T) {
	store := NewActionStore()
	ctx := context.Background()

	action := newAction(t, "complete_job")
	require.NoError(t, store.Enqueue(ctx, action))
	require.NoError(t, action.BeginSync())
	require.NoError(t, action.MarkRetryable("timeout", nil))
	require.NoError(t, store.Update(ctx, action))

	pending, err := store.NextPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entities.StatusFailedRetryable, pending[0].Status())
}

func TestActionStore_ListAndCount(t *testing.T) {
	store := NewActionStore()
	ctx := context.Background()

	a := newAction(t, "a")
	b := newAction(t, "b")
	require.NoError(t, store.Enqueue(ctx, a))
	require.NoError(t, store.Enqueue(ctx, b))
	syncAction(t, b)
	require.NoError(t, store.Update(ctx, b))

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	synced, err := store.List(ctx, entities.StatusSynced, 0)
	require.NoError(t, err)
	require.Len(t, synced, 1)
	assert.Equal(t, b.ID(), synced[0].ID())

	counts, err := store.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[entities.StatusPending])
	assert.Equal(t, 1, counts[entities.StatusSynced])
}

func TestActionStore_UpdateUnknownAction(t *testing.T) {
	store := NewActionStore()
	err := store.Update(context.Background(), newAction(t, "a"))
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestActionStore_DeleteSynced(t *testing.T) {
	store := NewActionStore()
	ctx := context.Background()

	var actions []*entities.PendingAction
	for i := 0; i < 5; i++ {
		a := newAction(t, "a")
		require.NoError(t, store.Enqueue(ctx, a))
		syncAction(t, a)
		require.NoError(t, store.Update(ctx, a))
		actions = append(actions, a)
	}
	pending := newAction(t, "still_pending")
	require.NoError(t, store.Enqueue(ctx, pending))

	removed, err := store.DeleteSynced(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	counts, _ := store.CountByStatus(ctx)
	assert.Equal(t, 2, counts[entities.StatusSynced])
	assert.Equal(t, 1, counts[entities.StatusPending])

	// The oldest synced actions were pruned
	_, err = store.Get(ctx, actions[0].ID())
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = store.Get(ctx, actions[4].ID())
	assert.NoError(t, err)
}
