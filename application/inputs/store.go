package inputs

import (
	"sync"

	"fieldui/domain/config"
	"fieldui/domain/core/validators"
	"fieldui/domain/core/valueobjects"
	pkgerrors "fieldui/pkg/errors"
)

// Store holds in-progress form values keyed by (valueKey, entityID).
// Values survive navigation away from a screen but not process restarts;
// anything that must survive a restart goes through the action queue.
type Store struct {
	mu        sync.RWMutex
	values    map[valueobjects.InputKey]valueobjects.InputValue
	validator *validators.InputValidator
}

// NewStore creates an empty input store
func NewStore(cfg *config.DomainConfig) *Store {
	return &Store{
		values:    make(map[valueobjects.InputKey]valueobjects.InputValue),
		validator: validators.NewInputValidator(cfg),
	}
}

// Set records a captured value, replacing any previous value for the key
func (s *Store) Set(valueKey, entityID string, value interface{}) error {
	if err := s.validator.ValidateValue(valueKey, value); err != nil {
		return err
	}

	key, err := valueobjects.NewInputKey(valueKey, entityID)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = valueobjects.NewInputValue(value)

	return nil
}

// Get returns the value for a key, with ok=false when nothing was captured
func (s *Store) Get(valueKey, entityID string) (valueobjects.InputValue, bool) {
	key := valueobjects.InputKey{ValueKey: valueKey, EntityID: entityID}

	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

// Delete removes a single captured value
func (s *Store) Delete(valueKey, entityID string) {
	key := valueobjects.InputKey{ValueKey: valueKey, EntityID: entityID}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// ValuesForEntity returns all captured values for one entity, keyed by
// valueKey. Used to build action payloads at dispatch time.
func (s *Store) ValuesForEntity(entityID string) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]interface{})
	for key, value := range s.values {
		if key.EntityID == entityID {
			out[key.ValueKey] = value.Raw()
		}
	}
	return out
}

// ClearEntity removes all captured values for one entity, called after
// the entity's actions have been dispatched
func (s *Store) ClearEntity(entityID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.values {
		if key.EntityID == entityID {
			delete(s.values, key)
		}
	}
}

// Len returns the number of captured values
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
