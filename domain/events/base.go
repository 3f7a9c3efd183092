package events

import (
	"time"

	"fieldui/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Action Events

// ActionEnqueued is raised when an action is captured into the offline queue
type ActionEnqueued struct {
	BaseEvent
	ActionID   valueobjects.ActionID `json:"action_id"`
	ActionName string                `json:"action_name"`
	EntityID   string                `json:"entity_id"`
	Screen     string                `json:"screen"`
}

// NewActionEnqueued creates an ActionEnqueued event
func NewActionEnqueued(actionID valueobjects.ActionID, actionName, entityID, screen string, timestamp time.Time) ActionEnqueued {
	return ActionEnqueued{
		BaseEvent: BaseEvent{
			AggregateID: actionID.String(),
			EventType:   "action.enqueued",
			Timestamp:   timestamp,
			Version:     1,
		},
		ActionID:   actionID,
		ActionName: actionName,
		EntityID:   entityID,
		Screen:     screen,
	}
}

// ActionSyncStarted is raised when the replayer picks an action up
type ActionSyncStarted struct {
	BaseEvent
	ActionID valueobjects.ActionID `json:"action_id"`
	Attempt  int                   `json:"attempt"`
}

// NewActionSyncStarted creates an ActionSyncStarted event
func NewActionSyncStarted(actionID valueobjects.ActionID, attempt int, timestamp time.Time) ActionSyncStarted {
	return ActionSyncStarted{
		BaseEvent: BaseEvent{
			AggregateID: actionID.String(),
			EventType:   "action.sync_started",
			Timestamp:   timestamp,
			Version:     1,
		},
		ActionID: actionID,
		Attempt:  attempt,
	}
}

// ActionSynced is raised when an action is confirmed by the server
type ActionSynced struct {
	BaseEvent
	ActionID   valueobjects.ActionID `json:"action_id"`
	ActionName string                `json:"action_name"`
	Attempts   int                   `json:"attempts"`
}

// NewActionSynced creates an ActionSynced event
func NewActionSynced(actionID valueobjects.ActionID, actionName string, attempts int, timestamp time.Time) ActionSynced {
	return ActionSynced{
		BaseEvent: BaseEvent{
			AggregateID: actionID.String(),
			EventType:   "action.synced",
			Timestamp:   timestamp,
			Version:     1,
		},
		ActionID:   actionID,
		ActionName: actionName,
		Attempts:   attempts,
	}
}

// ActionSyncFailed is raised when a sync attempt fails. Permanent marks
// failures that will never be retried and need user attention.
type ActionSyncFailed struct {
	BaseEvent
	ActionID   valueobjects.ActionID `json:"action_id"`
	ActionName string                `json:"action_name"`
	Reason     string                `json:"reason"`
	Attempts   int                   `json:"attempts"`
	Permanent  bool                  `json:"permanent"`
}

// NewActionSyncFailed creates an ActionSyncFailed event
func NewActionSyncFailed(actionID valueobjects.ActionID, actionName, reason string, attempts int, permanent bool, timestamp time.Time) ActionSyncFailed {
	return ActionSyncFailed{
		BaseEvent: BaseEvent{
			AggregateID: actionID.String(),
			EventType:   "action.sync_failed",
			Timestamp:   timestamp,
			Version:     1,
		},
		ActionID:   actionID,
		ActionName: actionName,
		Reason:     reason,
		Attempts:   attempts,
		Permanent:  permanent,
	}
}

// ActionRequeued is raised when a permanently failed action is put back
// in the queue by an explicit user retry
type ActionRequeued struct {
	BaseEvent
	ActionID valueobjects.ActionID `json:"action_id"`
}

// NewActionRequeued creates an ActionRequeued event
func NewActionRequeued(actionID valueobjects.ActionID, timestamp time.Time) ActionRequeued {
	return ActionRequeued{
		BaseEvent: BaseEvent{
			AggregateID: actionID.String(),
			EventType:   "action.requeued",
			Timestamp:   timestamp,
			Version:     1,
		},
		ActionID: actionID,
	}
}

// Screen Events

// ScreenLoaded is raised when a screen definition is resolved for a device
type ScreenLoaded struct {
	BaseEvent
	Screen           string `json:"screen"`
	RequestedVersion int    `json:"requested_version"`
	ServedVersion    int    `json:"served_version"`
	Fallback         bool   `json:"fallback"`
}

// NewScreenLoaded creates a ScreenLoaded event
func NewScreenLoaded(screen string, requestedVersion, servedVersion int, timestamp time.Time) ScreenLoaded {
	return ScreenLoaded{
		BaseEvent: BaseEvent{
			AggregateID: screen,
			EventType:   "screen.loaded",
			Timestamp:   timestamp,
			Version:     1,
		},
		Screen:           screen,
		RequestedVersion: requestedVersion,
		ServedVersion:    servedVersion,
		Fallback:         servedVersion != requestedVersion,
	}
}

// ScreenDecodeFailed is raised when a screen definition cannot be decoded
type ScreenDecodeFailed struct {
	BaseEvent
	Screen        string `json:"screen"`
	SchemaVersion int    `json:"schema_version"`
	Reason        string `json:"reason"`
}

// NewScreenDecodeFailed creates a ScreenDecodeFailed event
func NewScreenDecodeFailed(screen string, schemaVersion int, reason string, timestamp time.Time) ScreenDecodeFailed {
	return ScreenDecodeFailed{
		BaseEvent: BaseEvent{
			AggregateID: screen,
			EventType:   "screen.decode_failed",
			Timestamp:   timestamp,
			Version:     1,
		},
		Screen:        screen,
		SchemaVersion: schemaVersion,
		Reason:        reason,
	}
}
