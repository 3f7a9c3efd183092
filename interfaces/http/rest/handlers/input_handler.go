package handlers

import (
	"encoding/json"
	"net/http"

	"fieldui/application/inputs"
	"fieldui/pkg/common"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// InputHandler exposes the input value store. On a device this runs
// in-process; over HTTP it backs the development shell and tests.
type InputHandler struct {
	store  *inputs.Store
	logger *zap.Logger
}

// NewInputHandler creates a new input handler
func NewInputHandler(store *inputs.Store, logger *zap.Logger) *InputHandler {
	return &InputHandler{
		store:  store,
		logger: logger,
	}
}

// SetInputRequest represents the request body for capturing a value
type SetInputRequest struct {
	EntityID string      `json:"entityId"`
	Value    interface{} `json:"value"`
}

// SetValue handles PUT /inputs/{valueKey}
func (h *InputHandler) SetValue(w http.ResponseWriter, r *http.Request) {
	valueKey := chi.URLParam(r, "valueKey")
	if valueKey == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "value key is required")
		return
	}

	var req SetInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}

	if err := h.store.Set(valueKey, req.EntityID, req.Value); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"valueKey": valueKey,
		"entityId": req.EntityID,
	})
}

// GetValues handles GET /inputs?entityId=
func (h *InputHandler) GetValues(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entityId")

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"entityId": entityID,
		"values":   h.store.ValuesForEntity(entityID),
	})
}

// DeleteValue handles DELETE /inputs/{valueKey}?entityId=
func (h *InputHandler) DeleteValue(w http.ResponseWriter, r *http.Request) {
	valueKey := chi.URLParam(r, "valueKey")
	if valueKey == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "value key is required")
		return
	}

	h.store.Delete(valueKey, r.URL.Query().Get("entityId"))
	w.WriteHeader(http.StatusNoContent)
}

// ClearEntity handles DELETE /inputs?entityId=
func (h *InputHandler) ClearEntity(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entityId")
	if entityID == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "entityId is required")
		return
	}

	h.store.ClearEntity(entityID)
	w.WriteHeader(http.StatusNoContent)
}
