package sync

import (
	"context"

	"fieldui/application/ports"

	"go.uber.org/zap"
)

// LoopbackHandler accepts every action and succeeds without talking to
// a server. Used in development when no sync endpoint is configured,
// so the queue still drains and the state machine can be observed.
type LoopbackHandler struct {
	logger *zap.Logger
}

// NewLoopbackHandler creates a loopback handler
func NewLoopbackHandler(logger *zap.Logger) *LoopbackHandler {
	return &LoopbackHandler{logger: logger}
}

var _ ports.ActionHandler = (*LoopbackHandler)(nil)

// CanHandle accepts every action name
func (h *LoopbackHandler) CanHandle(actionName string) bool {
	return true
}

// Execute logs the invocation and reports success
func (h *LoopbackHandler) Execute(ctx context.Context, invocation ports.ActionInvocation) error {
	h.logger.Info("loopback sync",
		zap.String("action_id", invocation.ActionID.String()),
		zap.String("action", invocation.ActionName),
		zap.String("entity_id", invocation.EntityID),
		zap.Int("attempt", invocation.Attempt),
	)
	return nil
}
