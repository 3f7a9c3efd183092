package handlers

import (
	"net/http"
	"strconv"
	"time"

	"fieldui/application/loading"
	"fieldui/pkg/common"
	"fieldui/pkg/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxSupportedSchemaVersion caps what a client may request
const maxSupportedSchemaVersion = 1000

// ScreenHandler serves screen definitions and materialized screens
type ScreenHandler struct {
	navigator *loading.Navigator
	loader    *loading.Loader
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewScreenHandler creates a new screen handler
func NewScreenHandler(
	navigator *loading.Navigator,
	loader *loading.Loader,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ScreenHandler {
	return &ScreenHandler{
		navigator: navigator,
		loader:    loader,
		metrics:   metrics,
		logger:    logger,
	}
}

// ListScreens handles GET /screens
func (h *ScreenHandler) ListScreens(w http.ResponseWriter, r *http.Request) {
	screens, err := h.navigator.Screens(r.Context())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"screens": screens,
	})
}

// OpenScreen handles GET /screens/{screen}. The client sends the
// highest schema version it understands; the response carries the
// materialized tree for the best version at or below it.
func (h *ScreenHandler) OpenScreen(w http.ResponseWriter, r *http.Request) {
	screenName := chi.URLParam(r, "screen")
	if screenName == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "screen name is required")
		return
	}

	entityID := r.URL.Query().Get("entityId")
	maxVersion := parseMaxVersion(r)

	start := time.Now()
	screen, err := h.navigator.OpenScreen(r.Context(), screenName, entityID, maxVersion)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	h.metrics.RecordDuration(r.Context(), observability.MetricRenderLatency,
		time.Since(start), observability.ScreenDimension(screenName))

	common.RespondJSON(w, http.StatusOK, screen)
}

// definitionResponse is the raw loader result, pre-materialization
type definitionResponse struct {
	Screen           string `json:"screen"`
	RequestedVersion int    `json:"requestedVersion"`
	ServedVersion    int    `json:"servedVersion"`
	Fallback         bool   `json:"fallback"`
	Title            string `json:"title,omitempty"`
	EntityScope      string `json:"entityScope,omitempty"`
	ComponentCount   int    `json:"componentCount"`
}

// GetDefinition handles GET /screens/{screen}/definition. Used by the
// authoring tools to check what version a client would be served.
func (h *ScreenHandler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	screenName := chi.URLParam(r, "screen")
	if screenName == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "screen name is required")
		return
	}

	result, err := h.loader.LoadScreen(r.Context(), screenName, parseMaxVersion(r))
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, definitionResponse{
		Screen:           result.Definition.Screen,
		RequestedVersion: result.RequestedVersion,
		ServedVersion:    result.ServedVersion,
		Fallback:         result.Fallback,
		Title:            result.Definition.Title,
		EntityScope:      result.Definition.EntityScope,
		ComponentCount:   result.Definition.ComponentCount(),
	})
}

// parseMaxVersion reads the client's schema version ceiling, defaulting
// to everything
func parseMaxVersion(r *http.Request) int {
	raw := r.URL.Query().Get("maxSchemaVersion")
	if raw == "" {
		return maxSupportedSchemaVersion
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return maxSupportedSchemaVersion
	}
	return v
}
