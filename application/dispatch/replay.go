package dispatch

import (
	"context"
	"fmt"
	"time"

	"fieldui/application/ports"
	"fieldui/domain/config"
	"fieldui/domain/core/entities"
	pkgerrors "fieldui/pkg/errors"
	"fieldui/pkg/observability"

	"go.uber.org/zap"
)

// Replayer drains the pending action queue against the server. It is
// the single writer of sync state transitions: nothing else moves an
// action out of pending, so two goroutines can never replay the same
// action concurrently.
type Replayer struct {
	store        ports.PendingActionStore
	registry     *Registry
	connectivity ports.ConnectivityMonitor
	publisher    ports.EventPublisher
	metrics      *observability.Metrics
	logger       *zap.Logger

	// Configuration
	batchSize      int
	replayInterval time.Duration
	domainCfg      *config.DomainConfig

	// Control channels
	kick        chan struct{}
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewReplayer creates a replayer
func NewReplayer(
	store ports.PendingActionStore,
	registry *Registry,
	connectivity ports.ConnectivityMonitor,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *Replayer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Replayer{
		store:          store,
		registry:       registry,
		connectivity:   connectivity,
		publisher:      publisher,
		metrics:        metrics,
		logger:         logger,
		batchSize:      cfg.SyncBatchSize,
		replayInterval: cfg.ReplayInterval,
		domainCfg:      cfg,
		kick:           make(chan struct{}, 1),
		stopChan:       make(chan struct{}),
		stoppedChan:    make(chan struct{}),
	}
}

// Kick returns the channel the dispatcher uses to wake the replayer
// after an enqueue
func (r *Replayer) Kick() chan<- struct{} {
	return r.kick
}

// Start begins the background replay loop
func (r *Replayer) Start(ctx context.Context) {
	r.logger.Info("Starting action replayer",
		zap.Int("batchSize", r.batchSize),
		zap.Duration("interval", r.replayInterval),
	)

	if r.connectivity != nil {
		// Reconnects wake the loop immediately instead of waiting for
		// the next tick
		r.connectivity.Subscribe(func(online bool) {
			if online {
				select {
				case r.kick <- struct{}{}:
				default:
				}
			}
		})
	}

	go r.replayLoop(ctx)
}

// Stop gracefully stops the replayer
func (r *Replayer) Stop() {
	r.logger.Info("Stopping action replayer")
	close(r.stopChan)
	<-r.stoppedChan
	r.logger.Info("Action replayer stopped")
}

// replayLoop is the main processing loop
func (r *Replayer) replayLoop(ctx context.Context) {
	defer close(r.stoppedChan)

	ticker := time.NewTicker(r.replayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Context cancelled, stopping action replayer")
			return
		case <-r.stopChan:
			r.logger.Info("Stop signal received")
			return
		case <-r.kick:
			r.drain(ctx)
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// drain replays batches until the queue is empty or an offline signal
// stops the pass
func (r *Replayer) drain(ctx context.Context) {
	for {
		processed, err := r.ProcessBatch(ctx)
		if err != nil {
			r.logger.Error("Error processing replay batch", zap.Error(err))
			return
		}
		if processed == 0 {
			return
		}
	}
}

// ProcessBatch replays one batch of pending actions and returns how
// many were attempted. It is exported so tests and the sync endpoint
// can drive the queue without the background loop.
func (r *Replayer) ProcessBatch(ctx context.Context) (int, error) {
	if r.connectivity != nil && !r.connectivity.IsOnline() {
		return 0, nil
	}

	pending, err := r.store.NextPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending actions: %w", err)
	}

	if len(pending) == 0 {
		return 0, nil
	}

	r.logger.Debug("Processing replay batch",
		zap.Int("actionCount", len(pending)),
	)

	successCount := 0
	failureCount := 0

	for _, action := range pending {
		if err := r.replayAction(ctx, action); err != nil {
			failureCount++
		} else {
			successCount++
		}

		// Connectivity can drop mid-batch; stop instead of burning the
		// retry budget on timeouts
		if r.connectivity != nil && !r.connectivity.IsOnline() {
			break
		}
	}

	r.logger.Debug("Completed replay batch",
		zap.Int("successCount", successCount),
		zap.Int("failureCount", failureCount),
	)

	return len(pending), nil
}

// replayAction replays a single pending action
func (r *Replayer) replayAction(ctx context.Context, action *entities.PendingAction) error {
	handler := r.registry.HandlerFor(action.ActionName())
	if handler == nil {
		// A handler that existed at enqueue time is gone: permanent
		return r.markPermanent(ctx, action, fmt.Sprintf("no handler for action %q", action.ActionName()))
	}

	if err := action.BeginSync(); err != nil {
		r.logger.Warn("action not in a replayable state",
			zap.String("action_id", action.ID().String()),
			zap.String("status", string(action.Status())),
		)
		return err
	}
	if err := r.store.Update(ctx, action); err != nil {
		return fmt.Errorf("failed to persist sync start: %w", err)
	}
	r.flushEvents(ctx, action)

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
		return r.markFailed(ctx, action, err)
	}

	return r.markSynced(ctx, action)
}

// markSynced records a confirmed sync
func (r *Replayer) markSynced(ctx context.Context, action *entities.PendingAction) error {
	if err := action.MarkSynced(); err != nil {
		return err
	}
	if err := r.store.Update(ctx, action); err != nil {
		r.logger.Error("Failed to mark action as synced",
			zap.String("action_id", action.ID().String()),
			zap.Error(err),
		)
		return err
	}

	r.flushEvents(ctx, action)
	r.metrics.IncrementCounter(ctx, observability.MetricActionsSynced, observability.ActionDimension(action.ActionName()))

	r.logger.Debug("Action synced",
		zap.String("action_id", action.ID().String()),
		zap.String("action", action.ActionName()),
		zap.Int("attempts", action.Attempts()),
	)

	return nil
}

// markFailed classifies a sync failure and records the transition.
// Unclassified errors count as retryable.
func (r *Replayer) markFailed(ctx context.Context, action *entities.PendingAction, cause error) error {
	var transitionErr error
	if pkgerrors.IsSyncRetryable(cause) {
		transitionErr = action.MarkRetryable(cause.Error(), r.domainCfg)
		r.metrics.IncrementCounter(ctx, observability.MetricActionsRetried, observability.ActionDimension(action.ActionName()))
	} else {
		transitionErr = action.MarkPermanent(cause.Error())
	}
	if transitionErr != nil {
		return transitionErr
	}

	if err := r.store.Update(ctx, action); err != nil {
		r.logger.Error("Failed to mark action as failed",
			zap.String("action_id", action.ID().String()),
			zap.Error(err),
		)
		return err
	}

	r.flushEvents(ctx, action)

	if action.Status() == entities.StatusFailedPermanent {
		r.metrics.IncrementCounter(ctx, observability.MetricActionsFailed, observability.ActionDimension(action.ActionName()))
		r.logger.Warn("Action permanently failed",
			zap.String("action_id", action.ID().String()),
			zap.String("action", action.ActionName()),
			zap.Int("attempts", action.Attempts()),
			zap.String("error", action.LastError()),
		)
	} else {
		r.logger.Debug("Action marked for retry",
			zap.String("action_id", action.ID().String()),
			zap.String("action", action.ActionName()),
			zap.Int("attempts", action.Attempts()),
			zap.String("error", action.LastError()),
		)
	}

	return fmt.Errorf("action replay failed: %w", cause)
}

// markPermanent fails an action without a sync attempt
func (r *Replayer) markPermanent(ctx context.Context, action *entities.PendingAction, reason string) error {
	if err := action.MarkPermanent(reason); err != nil {
		return err
	}
	if err := r.store.Update(ctx, action); err != nil {
		return err
	}
	r.flushEvents(ctx, action)
	r.metrics.IncrementCounter(ctx, observability.MetricActionsFailed, observability.ActionDimension(action.ActionName()))
	return fmt.Errorf("action replay failed: %s", reason)
}

func (r *Replayer) flushEvents(ctx context.Context, action *entities.PendingAction) {
	if r.publisher == nil {
		action.MarkEventsAsCommitted()
		return
	}
	if err := r.publisher.PublishBatch(ctx, action.GetUncommittedEvents()); err != nil {
		r.logger.Warn("failed to publish action events",
			zap.String("action_id", action.ID().String()),
			zap.Error(err),
		)
		return
	}
	action.MarkEventsAsCommitted()
}

// GetStats returns queue statistics for the health endpoint
func (r *Replayer) GetStats(ctx context.Context) (map[string]interface{}, error) {
	counts, err := r.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"pending":          counts[entities.StatusPending],
		"syncing":          counts[entities.StatusSyncing],
		"synced":           counts[entities.StatusSynced],
		"failed_retryable": counts[entities.StatusFailedRetryable],
		"failed_permanent": counts[entities.StatusFailedPermanent],
		"batchSize":        r.batchSize,
		"replayInterval":   r.replayInterval.String(),
	}, nil
}
