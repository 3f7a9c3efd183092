package dispatch

import (
	"context"

	"fieldui/application/binding"
	"fieldui/application/ports"
	"fieldui/domain/core/entities"
	"fieldui/domain/core/validators"
	pkgerrors "fieldui/pkg/errors"
	"fieldui/pkg/observability"

	"go.uber.org/zap"
)

// Registry holds the action handlers known to this build
type Registry struct {
	handlers []ports.ActionHandler
}

// NewRegistry creates an empty handler registry
func NewRegistry(handlers ...ports.ActionHandler) *Registry {
	return &Registry{handlers: handlers}
}

// Register adds a handler
func (r *Registry) Register(handler ports.ActionHandler) {
	r.handlers = append(r.handlers, handler)
}

// HandlerFor returns the handler for an action name, nil when none
func (r *Registry) HandlerFor(actionName string) ports.ActionHandler {
	for _, handler := range r.handlers {
		if handler.CanHandle(actionName) {
			return handler
		}
	}
	return nil
}

// Request carries one user-triggered action dispatch
type Request struct {
	Screen     string
	EntityID   string
	DeviceID   string
	UserID     string
	ActionName string
	Params     map[string]interface{}
}

// Dispatcher validates an action, resolves its payload against current
// state, and records it in the queue. When the device is online the
// handler runs inline and its failure is surfaced to the caller, not
// retried here; offline, or without a connectivity signal, the action
// waits in the queue for the replayer.
type Dispatcher struct {
	store        ports.PendingActionStore
	registry     *Registry
	resolver     *binding.Resolver
	validator    *validators.ActionValidator
	publisher    ports.EventPublisher
	metrics      *observability.Metrics
	connectivity ports.ConnectivityMonitor
	logger       *zap.Logger

	// kick wakes the replayer after an enqueue
	kick chan<- struct{}
}

// NewDispatcher creates a dispatcher. connectivity may be nil, which
// disables the inline path and leaves everything to the replayer.
func NewDispatcher(
	store ports.PendingActionStore,
	registry *Registry,
	resolver *binding.Resolver,
	validator *validators.ActionValidator,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	connectivity ports.ConnectivityMonitor,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:        store,
		registry:     registry,
		resolver:     resolver,
		validator:    validator,
		publisher:    publisher,
		metrics:      metrics,
		connectivity: connectivity,
		logger:       logger,
	}
}

// BindReplayer connects the dispatcher to a replayer's kick channel
func (d *Dispatcher) BindReplayer(kick chan<- struct{}) {
	d.kick = kick
}

// Dispatch resolves one action and records it in the queue. scope
// resolves binding expressions in the action's params against the live
// screen state. Online, the handler executes before Dispatch returns
// and its error is the caller's; a failed action stays queued with its
// classified status.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, scope binding.Scope) (*entities.PendingAction, error) {
	handler := d.registry.HandlerFor(req.ActionName)
	if handler == nil {
		return nil, pkgerrors.NewDispatchError(req.ActionName)
	}

	payload := req.Params
	if scope != nil {
		payload = d.resolver.ResolveParams(scope, req.Params)
	}

	if err := d.validator.ValidateDispatch(req.ActionName, payload); err != nil {
		return nil, err
	}

	action, err := entities.NewPendingAction(req.DeviceID, req.UserID, req.ActionName, req.Screen, req.EntityID, payload)
	if err != nil {
		return nil, err
	}

	if err := d.store.Enqueue(ctx, action); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to enqueue action")
	}

	d.publishEvents(ctx, action)
	d.metrics.IncrementCounter(ctx, observability.MetricActionsEnqueued, observability.ActionDimension(req.ActionName))

	d.logger.Info("action enqueued",
		zap.String("action_id", action.ID().String()),
		zap.String("action", req.ActionName),
		zap.String("screen", req.Screen),
		zap.String("entity_id", req.EntityID),
	)

	if d.connectivity != nil && d.connectivity.IsOnline() {
		if err := d.executeInline(ctx, action, handler); err != nil {
			return action, err
		}
		return action, nil
	}

	d.wakeReplayer()

	return action, nil
}

// executeInline runs the handler synchronously for an online dispatch.
// The action already sits in the queue, so a crash mid-call replays it
// under the same ID. Failures are classified like a replay failure and
// returned to the caller; this layer never retries them.
func (d *Dispatcher) executeInline(ctx context.Context, action *entities.PendingAction, handler ports.ActionHandler) error {
	if err := action.BeginSync(); err != nil {
		return err
	}
	if err := d.store.Update(ctx, action); err != nil {
		return pkgerrors.Wrap(err, "failed to persist sync start")
	}
	d.publishEvents(ctx, action)

	invocation := ports.ActionInvocation{
		ActionID:   action.ID(),
		ActionName: action.ActionName(),
		EntityID:   action.EntityID(),
		Screen:     action.Screen(),
		DeviceID:   action.DeviceID(),
		UserID:     action.UserID(),
		Payload:    action.Payload(),
		Attempt:    action.Attempts(),
	}

	if err := handler.Execute(ctx, invocation); err != nil {
		d.recordInlineFailure(ctx, action, err)
		return err
	}

	if err := action.MarkSynced(); err != nil {
		return err
	}
	if err := d.store.Update(ctx, action); err != nil {
		return pkgerrors.Wrap(err, "failed to persist sync result")
	}
	d.publishEvents(ctx, action)
	d.metrics.IncrementCounter(ctx, observability.MetricActionsSynced, observability.ActionDimension(action.ActionName()))

	return nil
}

// recordInlineFailure stores the classified failure. A retryable
// failure leaves the action for the replayer; a permanent one waits
// for an explicit requeue.
func (d *Dispatcher) recordInlineFailure(ctx context.Context, action *entities.PendingAction, cause error) {
	var transitionErr error
	if pkgerrors.IsSyncRetryable(cause) {
		transitionErr = action.MarkRetryable(cause.Error(), nil)
		d.metrics.IncrementCounter(ctx, observability.MetricActionsRetried, observability.ActionDimension(action.ActionName()))
	} else {
		transitionErr = action.MarkPermanent(cause.Error())
		d.metrics.IncrementCounter(ctx, observability.MetricActionsFailed, observability.ActionDimension(action.ActionName()))
	}
	if transitionErr != nil {
		d.logger.Error("failed to record dispatch failure",
			zap.String("action_id", action.ID().String()),
			zap.Error(transitionErr),
		)
		return
	}

	if err := d.store.Update(ctx, action); err != nil {
		d.logger.Error("failed to persist dispatch failure",
			zap.String("action_id", action.ID().String()),
			zap.Error(err),
		)
		return
	}
	d.publishEvents(ctx, action)
}

// Requeue puts a permanently failed action back in the queue on an
// explicit user retry
func (d *Dispatcher) Requeue(ctx context.Context, action *entities.PendingAction) error {
	if err := action.Requeue(); err != nil {
		return err
	}

	if err := d.store.Update(ctx, action); err != nil {
		return pkgerrors.Wrap(err, "failed to requeue action")
	}

	d.publishEvents(ctx, action)
	d.wakeReplayer()

	return nil
}

func (d *Dispatcher) publishEvents(ctx context.Context, action *entities.PendingAction) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.PublishBatch(ctx, action.GetUncommittedEvents()); err != nil {
		d.logger.Warn("failed to publish action events",
			zap.String("action_id", action.ID().String()),
			zap.Error(err),
		)
		return
	}
	action.MarkEventsAsCommitted()
}

func (d *Dispatcher) wakeReplayer() {
	if d.kick == nil {
		return
	}
	select {
	case d.kick <- struct{}{}:
	default:
		// Replayer already has a pending wakeup
	}
}
