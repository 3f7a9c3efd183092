package entities

import (
	"time"

	"fieldui/domain/config"
	"fieldui/domain/core/valueobjects"
	"fieldui/domain/events"
	pkgerrors "fieldui/pkg/errors"
)

// ActionStatus represents the sync state of a pending action
type ActionStatus string

const (
	StatusPending         ActionStatus = "pending"
	StatusSyncing         ActionStatus = "syncing"
	StatusSynced          ActionStatus = "synced"
	StatusFailedRetryable ActionStatus = "failed_retryable"
	StatusFailedPermanent ActionStatus = "failed_permanent"
)

// PendingAction is the main entity representing a user action captured
// offline and awaiting sync with the server.
// This is a rich domain model with encapsulated business logic
type PendingAction struct {
	// Private fields ensure encapsulation
	id         valueobjects.ActionID
	deviceID   string
	userID     string
	actionName string
	screen     string
	entityID   string
	payload    map[string]interface{}
	status     ActionStatus
	attempts   int
	lastError  string
	createdAt  time.Time
	updatedAt  time.Time
	syncedAt   time.Time
	version    int

	// Domain events that occurred during this aggregate's lifetime
	events []events.DomainEvent
}

// NewPendingAction creates a new pending action with full business rule validation.
// The ID is assigned here, on the device, so the server can deduplicate replays.
func NewPendingAction(deviceID, userID, actionName, screen, entityID string, payload map[string]interface{}) (*PendingAction, error) {
	if deviceID == "" {
		return nil, pkgerrors.NewValidationError("deviceID cannot be empty")
	}

	if actionName == "" {
		return nil, pkgerrors.NewValidationError("actionName cannot be empty")
	}

	if payload == nil {
		payload = make(map[string]interface{})
	}

	now := time.Now()
	action := &PendingAction{
		id:         valueobjects.NewActionID(),
		deviceID:   deviceID,
		userID:     userID,
		actionName: actionName,
		screen:     screen,
		entityID:   entityID,
		payload:    payload,
		status:     StatusPending,
		attempts:   0,
		createdAt:  now,
		updatedAt:  now,
		version:    1,
		events:     []events.DomainEvent{},
	}

	action.addEvent(events.NewActionEnqueued(action.id, actionName, entityID, screen, now))

	return action, nil
}

// ReconstructPendingAction reconstructs an action from repository data
// with preserved timestamps and status
func ReconstructPendingAction(
	id valueobjects.ActionID,
	deviceID, userID, actionName, screen, entityID string,
	payload map[string]interface{},
	status ActionStatus,
	attempts int,
	lastError string,
	createdAt, updatedAt, syncedAt time.Time,
) (*PendingAction, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("action ID cannot be empty")
	}

	if actionName == "" {
		return nil, pkgerrors.NewValidationError("actionName cannot be empty")
	}

	if payload == nil {
		payload = make(map[string]interface{})
	}

	return &PendingAction{
		id:         id,
		deviceID:   deviceID,
		userID:     userID,
		actionName: actionName,
		screen:     screen,
		entityID:   entityID,
		payload:    payload,
		status:     status,
		attempts:   attempts,
		lastError:  lastError,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		syncedAt:   syncedAt,
		version:    1,
		events:     []events.DomainEvent{},
	}, nil
}

// ID returns the action's unique identifier
func (a *PendingAction) ID() valueobjects.ActionID {
	return a.id
}

// DeviceID returns the device that captured the action
func (a *PendingAction) DeviceID() string {
	return a.deviceID
}

// UserID returns the technician who performed the action
func (a *PendingAction) UserID() string {
	return a.userID
}

// ActionName returns the declared action name from the screen definition
func (a *PendingAction) ActionName() string {
	return a.actionName
}

// Screen returns the screen the action was captured on
func (a *PendingAction) Screen() string {
	return a.screen
}

// EntityID returns the entity the action applies to
func (a *PendingAction) EntityID() string {
	return a.entityID
}

// Status returns the action's current sync status
func (a *PendingAction) Status() ActionStatus {
	return a.status
}

// Attempts returns how many sync attempts have been made
func (a *PendingAction) Attempts() int {
	return a.attempts
}

// LastError returns the failure reason of the most recent attempt
func (a *PendingAction) LastError() string {
	return a.lastError
}

// Payload returns a copy of the resolved action payload
func (a *PendingAction) Payload() map[string]interface{} {
	payload := make(map[string]interface{}, len(a.payload))
	for k, v := range a.payload {
		payload[k] = v
	}
	return payload
}

// IsTerminal reports whether the action will never be picked up again
func (a *PendingAction) IsTerminal() bool {
	return a.status == StatusSynced || a.status == StatusFailedPermanent
}

// BeginSync transitions the action to syncing and counts the attempt
func (a *PendingAction) BeginSync() error {
	if a.status != StatusPending && a.status != StatusFailedRetryable {
		return pkgerrors.NewValidationError("action is not awaiting sync")
	}

	a.status = StatusSyncing
	a.attempts++
	a.updatedAt = time.Now()

	a.addEvent(events.NewActionSyncStarted(a.id, a.attempts, a.updatedAt))

	return nil
}

// MarkSynced records a confirmed sync. Synced is terminal.
func (a *PendingAction) MarkSynced() error {
	if a.status == StatusSynced {
		return nil // Replays of a synced action are no-ops
	}

	if a.status != StatusSyncing {
		return pkgerrors.NewValidationError("action is not being synced")
	}

	now := time.Now()
	a.status = StatusSynced
	a.lastError = ""
	a.syncedAt = now
	a.updatedAt = now

	a.addEvent(events.NewActionSynced(a.id, a.actionName, a.attempts, now))

	return nil
}

// MarkRetryable records a failed attempt that should be retried. When the
// retry budget is exhausted the action goes permanent instead.
func (a *PendingAction) MarkRetryable(reason string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if a.status != StatusSyncing {
		return pkgerrors.NewValidationError("action is not being synced")
	}

	a.lastError = reason
	a.updatedAt = time.Now()

	if a.attempts >= cfg.MaxSyncRetries {
		a.status = StatusFailedPermanent
		a.addEvent(events.NewActionSyncFailed(a.id, a.actionName, reason, a.attempts, true, a.updatedAt))
		return nil
	}

	a.status = StatusFailedRetryable
	a.addEvent(events.NewActionSyncFailed(a.id, a.actionName, reason, a.attempts, false, a.updatedAt))

	return nil
}

// MarkPermanent records a failure that no retry can fix, such as a
// validation rejection from the server
func (a *PendingAction) MarkPermanent(reason string) error {
	if a.status == StatusSynced {
		return pkgerrors.NewValidationError("cannot fail a synced action")
	}

	a.status = StatusFailedPermanent
	a.lastError = reason
	a.updatedAt = time.Now()

	a.addEvent(events.NewActionSyncFailed(a.id, a.actionName, reason, a.attempts, true, a.updatedAt))

	return nil
}

// Requeue puts a permanently failed action back in the queue. This is an
// explicit user decision, so the attempt counter resets.
func (a *PendingAction) Requeue() error {
	if a.status != StatusFailedPermanent {
		return pkgerrors.NewValidationError("only permanently failed actions can be requeued")
	}

	a.status = StatusPending
	a.attempts = 0
	a.lastError = ""
	a.updatedAt = time.Now()

	a.addEvent(events.NewActionRequeued(a.id, a.updatedAt))

	return nil
}

// CreatedAt returns when the action was captured
func (a *PendingAction) CreatedAt() time.Time {
	return a.createdAt
}

// UpdatedAt returns when the action last changed state
func (a *PendingAction) UpdatedAt() time.Time {
	return a.updatedAt
}

// SyncedAt returns when the action was confirmed, zero if never
func (a *PendingAction) SyncedAt() time.Time {
	return a.syncedAt
}

// GetUncommittedEvents returns all uncommitted domain events
func (a *PendingAction) GetUncommittedEvents() []events.DomainEvent {
	return a.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (a *PendingAction) MarkEventsAsCommitted() {
	a.events = []events.DomainEvent{}
}

// addEvent adds a domain event to the uncommitted list
func (a *PendingAction) addEvent(event events.DomainEvent) {
	a.events = append(a.events, event)
}
