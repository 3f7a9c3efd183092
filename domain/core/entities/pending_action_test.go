package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldui/domain/config"
	"fieldui/domain/core/valueobjects"
)

func newTestAction(t *testing.T) *PendingAction {
	t.Helper()
	action, err := NewPendingAction(
		"device-1", "user-1", "complete_job", "job_detail", "job-42",
		map[string]interface{}{"notes": "replaced bait stations"},
	)
	require.NoError(t, err)
	return action
}

func TestNewPendingAction(t *testing.T) {
	action := newTestAction(t)

	assert.False(t, action.ID().IsZero())
	assert.Equal(t, StatusPending, action.Status())
	assert.Equal(t, 0, action.Attempts())
	assert.False(t, action.IsTerminal())
	assert.False(t, action.CreatedAt().IsZero())
	assert.True(t, action.SyncedAt().IsZero())

	uncommitted := action.GetUncommittedEvents()
	require.Len(t, uncommitted, 1)
	assert.Equal(t, "action.enqueued", uncommitted[0].GetEventType())
}

func TestNewPendingAction_Validation(t *testing.T) {
	_, err := NewPendingAction("", "user-1", "complete_job", "job_detail", "job-42", nil)
	assert.Error(t, err)

	_, err = NewPendingAction("device-1", "user-1", "", "job_detail", "job-42", nil)
	assert.Error(t, err)

	// userID and entityID may be empty, payload defaults to an empty map
	action, err := NewPendingAction("device-1", "", "refresh", "home", "", nil)
	require.NoError(t, err)
	assert.NotNil(t, action.Payload())
}

func TestPendingAction_SuccessfulSync(t *testing.T) {
	action := newTestAction(t)

	require.NoError(t, action.BeginSync())
	assert.Equal(t, StatusSyncing, action.Status())
	assert.Equal(t, 1, action.Attempts())

	require.NoError(t, action.MarkSynced())
	assert.Equal(t, StatusSynced, action.Status())
	assert.True(t, action.IsTerminal())
	assert.False(t, action.SyncedAt().IsZero())
	assert.Empty(t, action.LastError())

	// Marking synced twice is a no-op, replays must be idempotent
	require.NoError(t, action.MarkSynced())
	assert.Equal(t, StatusSynced, action.Status())
}

func TestPendingAction_RetryThenExhaust(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxSyncRetries = 2

	action := newTestAction(t)

	require.NoError(t, action.BeginSync())
	require.NoError(t, action.MarkRetryable("connection reset", cfg))
	assert.Equal(t, StatusFailedRetryable, action.Status())
	assert.Equal(t, "connection reset", action.LastError())
	assert.False(t, action.IsTerminal())

	// Retryable actions can begin sync again
	require.NoError(t, action.BeginSync())
	assert.Equal(t, 2, action.Attempts())

	// Second failure exhausts the retry budget
	require.NoError(t, action.MarkRetryable("timeout", cfg))
	assert.Equal(t, StatusFailedPermanent, action.Status())
	assert.True(t, action.IsTerminal())
}

func TestPendingAction_MarkPermanent(t *testing.T) {
	action := newTestAction(t)

	require.NoError(t, action.BeginSync())
	require.NoError(t, action.MarkPermanent("server rejected payload"))
	assert.Equal(t, StatusFailedPermanent, action.Status())
	assert.Equal(t, "server rejected payload", action.LastError())

	// A synced action can never be failed
	synced := newTestAction(t)
	require.NoError(t, synced.BeginSync())
	require.NoError(t, synced.MarkSynced())
	assert.Error(t, synced.MarkPermanent("too late"))
}

func TestPendingAction_Requeue(t *testing.T) {
	action := newTestAction(t)

	// Only permanently failed actions can be requeued
	assert.Error(t, action.Requeue())

	require.NoError(t, action.BeginSync())
	require.NoError(t, action.MarkPermanent("rejected"))

	require.NoError(t, action.Requeue())
	assert.Equal(t, StatusPending, action.Status())
	assert.Equal(t, 0, action.Attempts())
	assert.Empty(t, action.LastError())
}

func TestPendingAction_InvalidTransitions(t *testing.T) {
	action := newTestAction(t)

	// Cannot finish a sync that never started
	assert.Error(t, action.MarkSynced())
	assert.Error(t, action.MarkRetryable("x", nil))

	require.NoError(t, action.BeginSync())

	// Cannot start a sync twice
	assert.Error(t, action.BeginSync())
}

func TestReconstructPendingAction(t *testing.T) {
	id := valueobjects.NewActionID()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	updated := created.Add(time.Minute)

	action, err := ReconstructPendingAction(
		id, "device-1", "user-1", "complete_job", "job_detail", "job-42",
		map[string]interface{}{"notes": "done"},
		StatusFailedRetryable, 3, "timeout",
		created, updated, time.Time{},
	)
	require.NoError(t, err)

	assert.True(t, action.ID().Equals(id))
	assert.Equal(t, StatusFailedRetryable, action.Status())
	assert.Equal(t, 3, action.Attempts())
	assert.Equal(t, created, action.CreatedAt())
	assert.Empty(t, action.GetUncommittedEvents(), "reconstruction emits no events")

	_, err = ReconstructPendingAction(
		valueobjects.ActionID{}, "device-1", "user-1", "complete_job", "", "",
		nil, StatusPending, 0, "", created, updated, time.Time{},
	)
	assert.Error(t, err)
}

func TestPendingAction_PayloadIsCopied(t *testing.T) {
	action := newTestAction(t)

	payload := action.Payload()
	payload["notes"] = "mutated"

	assert.Equal(t, "replaced bait stations", action.Payload()["notes"])
}

func TestPendingAction_MarkEventsAsCommitted(t *testing.T) {
	action := newTestAction(t)
	require.NoError(t, action.BeginSync())

	assert.Len(t, action.GetUncommittedEvents(), 2)
	action.MarkEventsAsCommitted()
	assert.Empty(t, action.GetUncommittedEvents())
}
