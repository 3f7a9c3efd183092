package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"fieldui/application/dispatch"
	"fieldui/application/loading"
	"fieldui/pkg/auth"
	"fieldui/pkg/common"
	"fieldui/pkg/utils"

	"go.uber.org/zap"
)

// ActionHandler handles action dispatch requests
type ActionHandler struct {
	dispatcher *dispatch.Dispatcher
	navigator  *loading.Navigator
	logger     *zap.Logger
}

// NewActionHandler creates a new action handler
func NewActionHandler(
	dispatcher *dispatch.Dispatcher,
	navigator *loading.Navigator,
	logger *zap.Logger,
) *ActionHandler {
	return &ActionHandler{
		dispatcher: dispatcher,
		navigator:  navigator,
		logger:     logger,
	}
}

// DispatchRequest represents the request body for dispatching an action
type DispatchRequest struct {
	Screen     string                 `json:"screen" validate:"required"`
	EntityID   string                 `json:"entityId,omitempty"`
	DeviceID   string                 `json:"deviceId" validate:"required"`
	ActionName string                 `json:"actionName" validate:"required"`
	Params     map[string]interface{} `json:"params,omitempty"`
}

// DispatchResponse represents the response for a dispatched action
type DispatchResponse struct {
	ActionID   string `json:"actionId"`
	Status     string `json:"status"`
	EnqueuedAt string `json:"enqueuedAt"`
}

// Dispatch handles POST /actions. The action's params are resolved
// against the screen's current state before the action is queued, so
// the payload is frozen at tap time.
func (h *ActionHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	userID := ""
	if userCtx, err := auth.GetUserFromContext(r.Context()); err == nil {
		userID = userCtx.UserID
	}

	scope := h.navigator.BuildContext(r.Context(), req.Screen, req.EntityID)

	action, err := h.dispatcher.Dispatch(r.Context(), dispatch.Request{
		Screen:     req.Screen,
		EntityID:   req.EntityID,
		DeviceID:   req.DeviceID,
		UserID:     userID,
		ActionName: req.ActionName,
		Params:     req.Params,
	}, scope)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusAccepted, DispatchResponse{
		ActionID:   action.ID().String(),
		Status:     string(action.Status()),
		EnqueuedAt: action.CreatedAt().Format(time.RFC3339),
	})
}
