package ports

import (
	"context"

	"fieldui/domain/core/entities"
	"fieldui/domain/core/valueobjects"
	"fieldui/domain/events"
)

// ScreenSource defines the interface for fetching versioned screen JSON.
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type ScreenSource interface {
	// HighestVersion returns the highest schema version available for a
	// screen that does not exceed maxVersion. Returns 0 when none exists.
	HighestVersion(ctx context.Context, screen string, maxVersion int) (int, error)

	// Fetch retrieves the raw JSON document for an exact screen version
	Fetch(ctx context.Context, screen string, version int) ([]byte, error)

	// List returns the names of all screens the source knows about
	List(ctx context.Context) ([]string, error)
}

// PendingActionStore defines the interface for the durable offline queue
type PendingActionStore interface {
	// Enqueue persists a newly captured action
	Enqueue(ctx context.Context, action *entities.PendingAction) error

	// Get retrieves an action by ID
	Get(ctx context.Context, id valueobjects.ActionID) (*entities.PendingAction, error)

	// NextPending returns up to limit actions awaiting sync, oldest first
	NextPending(ctx context.Context, limit int) ([]*entities.PendingAction, error)

	// Update persists a state transition
	Update(ctx context.Context, action *entities.PendingAction) error

	// List returns actions filtered by status; an empty status returns all
	List(ctx context.Context, status entities.ActionStatus, limit int) ([]*entities.PendingAction, error)

	// CountByStatus returns the number of actions per status
	CountByStatus(ctx context.Context) (map[entities.ActionStatus]int, error)

	// DeleteSynced removes synced actions older than the retention window,
	// returning how many were removed
	DeleteSynced(ctx context.Context, keep int) (int, error)
}

// ActionInvocation carries one action execution to the server
type ActionInvocation struct {
	ActionID   valueobjects.ActionID
	ActionName string
	EntityID   string
	Screen     string
	DeviceID   string
	UserID     string
	Payload    map[string]interface{}
	Attempt    int
}

// ActionHandler executes a named action against the backend. Handlers
// must be idempotent on ActionID: replaying a completed invocation
// returns success without reapplying the effect.
type ActionHandler interface {
	// Execute performs the action
	Execute(ctx context.Context, invocation ActionInvocation) error

	// CanHandle checks if this handler executes the named action
	CanHandle(actionName string) bool
}

// ConnectivityMonitor reports whether the device can reach the server
type ConnectivityMonitor interface {
	// IsOnline reports current connectivity
	IsOnline() bool

	// Subscribe registers a callback invoked on connectivity changes
	Subscribe(fn func(online bool)) func()
}

// EntitySnapshot exposes the locally cached server data for one entity.
// Snapshots are read-only from the interpreter's point of view.
type EntitySnapshot interface {
	// ID returns the entity identifier
	ID() string

	// Field resolves a dot path inside the snapshot
	Field(path string) (string, bool)

	// Items resolves a dot path to a list of child snapshots, used by
	// repeating containers
	Items(path string) ([]EntitySnapshot, bool)
}

// EntityProvider looks up entity snapshots by scope and ID
type EntityProvider interface {
	// Snapshot returns the snapshot for an entity, or false when the
	// device has no cached data for it
	Snapshot(ctx context.Context, scope, entityID string) (EntitySnapshot, bool)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventBus defines the interface for publishing domain events
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for an event type
	Subscribe(eventType string, handler EventHandler) error

	// Unsubscribe removes a handler
	Unsubscribe(eventType string, handler EventHandler) error
}

// EventHandler defines the interface for handling domain events
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// Cache defines the interface for caching
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
