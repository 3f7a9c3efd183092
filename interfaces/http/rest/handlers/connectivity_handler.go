package handlers

import (
	"encoding/json"
	"net/http"

	"fieldui/infrastructure/connectivity"
	"fieldui/pkg/common"

	"go.uber.org/zap"
)

// ConnectivityHandler reads and overrides the connectivity state. The
// override exists for development and tests, taking the device offline
// without pulling a cable.
type ConnectivityHandler struct {
	monitor *connectivity.Monitor
	logger  *zap.Logger
}

// NewConnectivityHandler creates a new connectivity handler
func NewConnectivityHandler(monitor *connectivity.Monitor, logger *zap.Logger) *ConnectivityHandler {
	return &ConnectivityHandler{
		monitor: monitor,
		logger:  logger,
	}
}

// Status handles GET /connectivity
func (h *ConnectivityHandler) Status(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]bool{
		"online": h.monitor.IsOnline(),
	})
}

// SetStatus handles PUT /connectivity
func (h *ConnectivityHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body: "+err.Error())
		return
	}

	h.monitor.SetOnline(req.Online)

	common.RespondJSON(w, http.StatusOK, map[string]bool{
		"online": h.monitor.IsOnline(),
	})
}
