package memory

import (
	"context"
	"sort"
	"sync"

	"fieldui/application/ports"
	"fieldui/domain/core/entities"
	"fieldui/domain/core/valueobjects"
	pkgerrors "fieldui/pkg/errors"
)

// ActionStore is an in-memory pending action store. Used in tests and
// in development; it does not survive a restart, so production devices
// use the SQLite store.
type ActionStore struct {
	mu      sync.RWMutex
	actions map[string]*entities.PendingAction
	order   []string
}

// NewActionStore creates an empty in-memory store
func NewActionStore() *ActionStore {
	return &ActionStore{
		actions: make(map[string]*entities.PendingAction),
	}
}

var _ ports.PendingActionStore = (*ActionStore)(nil)

// Enqueue persists a newly captured action
func (s *ActionStore) Enqueue(ctx context.Context, action *entities.PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := action.ID().String()
	if _, exists := s.actions[id]; exists {
		return pkgerrors.NewConflictError("action already enqueued")
	}

	s.actions[id] = action
	s.order = append(s.order, id)
	return nil
}

// Get retrieves an action by ID
func (s *ActionStore) Get(ctx context.Context, id valueobjects.ActionID) (*entities.PendingAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	action, ok := s.actions[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("action")
	}
	return action, nil
}

// NextPending returns up to limit actions awaiting sync, oldest first
func (s *ActionStore) NextPending(ctx context.Context, limit int) ([]*entities.PendingAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.PendingAction
	for _, id := range s.order {
		action := s.actions[id]
		if action.Status() != entities.StatusPending && action.Status() != entities.StatusFailedRetryable {
			continue
		}
		out = append(out, action)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Update persists a state transition
func (s *ActionStore) Update(ctx context.Context, action *entities.PendingAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := action.ID().String()
	if _, exists := s.actions[id]; !exists {
		return pkgerrors.NewNotFoundError("action")
	}

	s.actions[id] = action
	return nil
}

// List returns actions filtered by status, oldest first
func (s *ActionStore) List(ctx context.Context, status entities.ActionStatus, limit int) ([]*entities.PendingAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.PendingAction
	for _, id := range s.order {
		action := s.actions[id]
		if status != "" && action.Status() != status {
			continue
		}
		out = append(out, action)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// CountByStatus returns the number of actions per status
func (s *ActionStore) CountByStatus(ctx context.Context) (map[entities.ActionStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[entities.ActionStatus]int)
	for _, action := range s.actions {
		counts[action.Status()]++
	}
	return counts, nil
}

// DeleteSynced removes synced actions beyond the keep newest
func (s *ActionStore) DeleteSynced(ctx context.Context, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var synced []string
	for _, id := range s.order {
		if s.actions[id].Status() == entities.StatusSynced {
			synced = append(synced, id)
		}
	}

	sort.SliceStable(synced, func(i, j int) bool {
		return s.actions[synced[i]].SyncedAt().Before(s.actions[synced[j]].SyncedAt())
	})

	removed := 0
	if len(synced) > keep {
		for _, id := range synced[:len(synced)-keep] {
			delete(s.actions, id)
			removed++
		}
		s.compactOrder()
	}
	return removed, nil
}

// compactOrder drops deleted IDs from the insertion order
func (s *ActionStore) compactOrder() {
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.actions[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
}
