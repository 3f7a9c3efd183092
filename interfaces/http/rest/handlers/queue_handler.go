package handlers

import (
	"net/http"
	"strconv"
	"time"

	"fieldui/application/dispatch"
	"fieldui/application/ports"
	"fieldui/domain/core/entities"
	"fieldui/domain/core/valueobjects"
	"fieldui/pkg/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// QueueHandler exposes the pending action queue for inspection and
// explicit retries
type QueueHandler struct {
	store      ports.PendingActionStore
	dispatcher *dispatch.Dispatcher
	replayer   *dispatch.Replayer
	logger     *zap.Logger
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(
	store ports.PendingActionStore,
	dispatcher *dispatch.Dispatcher,
	replayer *dispatch.Replayer,
	logger *zap.Logger,
) *QueueHandler {
	return &QueueHandler{
		store:      store,
		dispatcher: dispatcher,
		replayer:   replayer,
		logger:     logger,
	}
}

// queuedAction is the wire shape of a pending action
type queuedAction struct {
	ActionID   string                 `json:"actionId"`
	ActionName string                 `json:"actionName"`
	Screen     string                 `json:"screen,omitempty"`
	EntityID   string                 `json:"entityId,omitempty"`
	DeviceID   string                 `json:"deviceId"`
	Status     string                 `json:"status"`
	Attempts   int                    `json:"attempts"`
	LastError  string                 `json:"lastError,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	CreatedAt  string                 `json:"createdAt"`
	SyncedAt   string                 `json:"syncedAt,omitempty"`
}

func toQueuedAction(action *entities.PendingAction) queuedAction {
	qa := queuedAction{
		ActionID:   action.ID().String(),
		ActionName: action.ActionName(),
		Screen:     action.Screen(),
		EntityID:   action.EntityID(),
		DeviceID:   action.DeviceID(),
		Status:     string(action.Status()),
		Attempts:   action.Attempts(),
		LastError:  action.LastError(),
		Payload:    action.Payload(),
		CreatedAt:  action.CreatedAt().Format(time.RFC3339),
	}
	if !action.SyncedAt().IsZero() {
		qa.SyncedAt = action.SyncedAt().Format(time.RFC3339)
	}
	return qa
}

// List handles GET /queue?status=&limit=
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	status := entities.ActionStatus(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	actions, err := h.store.List(r.Context(), status, limit)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	out := make([]queuedAction, 0, len(actions))
	for _, action := range actions {
		out = append(out, toQueuedAction(action))
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"actions": out,
		"count":   len(out),
	})
}

// Get handles GET /queue/{actionID}
func (h *QueueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewActionIDFromString(chi.URLParam(r, "actionID"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid action ID")
		return
	}

	action, err := h.store.Get(r.Context(), id)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toQueuedAction(action))
}

// Stats handles GET /queue/stats
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.replayer.GetStats(r.Context())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, stats)
}

// Requeue handles POST /queue/{actionID}/requeue. Only permanently
// failed actions can be requeued; the transition rules live on the
// entity.
func (h *QueueHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id, err := valueobjects.NewActionIDFromString(chi.URLParam(r, "actionID"))
	if err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid action ID")
		return
	}

	action, err := h.store.Get(r.Context(), id)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	if err := h.dispatcher.Requeue(r.Context(), action); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, toQueuedAction(action))
}

// PruneSynced handles DELETE /queue/synced?keep=
func (h *QueueHandler) PruneSynced(w http.ResponseWriter, r *http.Request) {
	keep, err := strconv.Atoi(r.URL.Query().Get("keep"))
	if err != nil || keep < 0 {
		keep = 100
	}

	removed, err := h.store.DeleteSynced(r.Context(), keep)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]int{
		"removed": removed,
	})
}
