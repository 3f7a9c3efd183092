package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fieldui/application/ports"
	pkgerrors "fieldui/pkg/errors"

	"go.uber.org/zap"
)

// maxErrorBodyBytes caps how much of an error response gets logged
const maxErrorBodyBytes = 4 << 10

// ActionHandler ships queued actions to the sync service over HTTP.
// It is the catch-all handler: any action name the device queues is
// posted as-is, the service routes by name. The action ID rides along
// as idempotency key so the service deduplicates replays.
type ActionHandler struct {
	endpoint  string
	client    *http.Client
	authToken func() string
	logger    *zap.Logger
}

// NewActionHandler creates a handler posting to the sync endpoint.
// authToken supplies a bearer token per request, nil disables auth.
func NewActionHandler(endpoint string, timeout time.Duration, authToken func() string, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
		authToken: authToken,
		logger:    logger,
	}
}

var _ ports.ActionHandler = (*ActionHandler)(nil)

// CanHandle accepts every action name, the sync service routes by name
func (h *ActionHandler) CanHandle(actionName string) bool {
	return true
}

// syncRequest is the wire format for one action execution
type syncRequest struct {
	ActionID   string                 `json:"actionId"`
	ActionName string                 `json:"actionName"`
	EntityID   string                 `json:"entityId,omitempty"`
	Screen     string                 `json:"screen,omitempty"`
	DeviceID   string                 `json:"deviceId"`
	UserID     string                 `json:"userId,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	Attempt    int                    `json:"attempt"`
}

// Execute posts the invocation to the sync service. Failure mapping
// drives the retry state machine: transport errors and 5xx stay
// retryable, 4xx responses are permanent, and a 409 means the service
// already applied this action ID, which counts as success.
func (h *ActionHandler) Execute(ctx context.Context, invocation ports.ActionInvocation) error {
	body, err := json.Marshal(syncRequest{
		ActionID:   invocation.ActionID.String(),
		ActionName: invocation.ActionName,
		EntityID:   invocation.EntityID,
		Screen:     invocation.Screen,
		DeviceID:   invocation.DeviceID,
		UserID:     invocation.UserID,
		Payload:    invocation.Payload,
		Attempt:    invocation.Attempt,
	})
	if err != nil {
		return pkgerrors.NewValidationError(fmt.Sprintf("payload not serializable: %v", err))
	}

	url := h.endpoint + "/actions/" + invocation.ActionName
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", invocation.ActionID.String())
	req.Header.Set("X-Device-ID", invocation.DeviceID)
	if h.authToken != nil {
		if token := h.authToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("sync request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil

	case resp.StatusCode == http.StatusConflict:
		// Already applied on a previous attempt
		h.logger.Debug("action already applied on server",
			zap.String("action_id", invocation.ActionID.String()),
			zap.String("action", invocation.ActionName),
		)
		return nil

	case resp.StatusCode == http.StatusUnauthorized:
		return pkgerrors.NewUnauthorizedError(h.responseDetail(resp))

	case resp.StatusCode == http.StatusForbidden:
		return pkgerrors.NewForbiddenError(h.responseDetail(resp))

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return pkgerrors.NewValidationError(
			fmt.Sprintf("sync service rejected action: %s", h.responseDetail(resp)))

	default:
		return fmt.Errorf("sync service returned %d: %s", resp.StatusCode, h.responseDetail(resp))
	}
}

// responseDetail extracts the error message from a failed response
func (h *ActionHandler) responseDetail(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return resp.Status
	}

	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(data)
}
