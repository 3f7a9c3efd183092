package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fieldui/application/binding"
	"fieldui/application/ports"
	"fieldui/domain/config"
	"fieldui/domain/core/entities"
	"fieldui/domain/core/validators"
	"fieldui/infrastructure/persistence/memory"
	pkgerrors "fieldui/pkg/errors"
	"fieldui/pkg/observability"
)

// fakeHandler executes named actions and records invocations. Each call
// pops the next scripted error, nil meaning success.
type fakeHandler struct {
	mu          sync.Mutex
	names       map[string]bool
	invocations []ports.ActionInvocation
	script      []error
}

func newFakeHandler(names ...string) *fakeHandler {
	h := &fakeHandler{names: make(map[string]bool)}
	for _, n := range names {
		h.names[n] = true
	}
	return h
}

func (h *fakeHandler) fail(errs ...error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.script = append(h.script, errs...)
}

func (h *fakeHandler) CanHandle(actionName string) bool {
	return h.names[actionName]
}

func (h *fakeHandler) Execute(ctx context.Context, invocation ports.ActionInvocation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invocations = append(h.invocations, invocation)
	if len(h.script) == 0 {
		return nil
	}
	err := h.script[0]
	h.script = h.script[1:]
	return err
}

func (h *fakeHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.invocations)
}

// fakeMonitor is a settable connectivity monitor
type fakeMonitor struct {
	mu     sync.Mutex
	online bool
	subs   []func(bool)
}

func (m *fakeMonitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *fakeMonitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
	return func() {}
}

func (m *fakeMonitor) set(online bool) {
	m.mu.Lock()
	subs := append([]func(bool){}, m.subs...)
	m.online = online
	m.mu.Unlock()
	for _, fn := range subs {
		fn(online)
	}
}

// mapScope resolves binding paths from a map
type mapScope map[string]interface{}

func (s mapScope) Lookup(path string) (string, bool) {
	v, ok := s[path]
	if !ok {
		return "", false
	}
	str, _ := v.(string)
	return str, true
}

func (s mapScope) LookupRaw(path string) (interface{}, bool) {
	v, ok := s[path]
	return v, ok
}

type fixture struct {
	store      *memory.ActionStore
	handler    *fakeHandler
	monitor    *fakeMonitor
	dispatcher *Dispatcher
	replayer   *Replayer
	metrics    *observability.Metrics
	cfg        *config.DomainConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	cfg := config.DefaultDomainConfig()
	cfg.MaxSyncRetries = 3

	// Captures start offline; tests flip the monitor when they exercise
	// the online inline path or the replay loop
	store := memory.NewActionStore()
	handler := newFakeHandler("complete_job", "add_note")
	monitor := &fakeMonitor{online: false}
	metrics := observability.NewMetrics(nil, "", logger)
	registry := NewRegistry(handler)

	dispatcher := NewDispatcher(store, registry, binding.NewResolver(logger), validators.NewActionValidator(cfg), nil, metrics, monitor, logger)
	replayer := NewReplayer(store, registry, monitor, nil, metrics, cfg, logger)
	dispatcher.BindReplayer(replayer.Kick())

	return &fixture{
		store:      store,
		handler:    handler,
		monitor:    monitor,
		dispatcher: dispatcher,
		replayer:   replayer,
		metrics:    metrics,
		cfg:        cfg,
	}
}

func (f *fixture) dispatch(t *testing.T, name string, params map[string]interface{}, scope binding.Scope) *entities.PendingAction {
	t.Helper()
	action, err := f.dispatcher.Dispatch(context.Background(), Request{
		Screen:     "job_detail",
		EntityID:   "job-42",
		DeviceID:   "device-1",
		UserID:     "user-1",
		ActionName: name,
		Params:     params,
	}, scope)
	require.NoError(t, err)
	return action
}

func TestDispatch_OfflineEnqueuesWithoutExecuting(t *testing.T) {
	f := newFixture(t)

	action := f.dispatch(t, "complete_job", map[string]interface{}{"jobId": "job-42"}, nil)

	assert.Equal(t, entities.StatusPending, action.Status())
	assert.Equal(t, 0, f.handler.calls(), "offline dispatch never performs the server call")
	assert.Equal(t, 1.0, f.metrics.Counter(observability.MetricActionsEnqueued))

	// The replayer got a wakeup
	select {
	case <-f.replayer.kick:
	default:
		t.Fatal("expected a replayer kick after enqueue")
	}
}

func TestDispatch_OnlineExecutesInline(t *testing.T) {
	f := newFixture(t)
	f.monitor.set(true)

	action := f.dispatch(t, "complete_job", map[string]interface{}{"jobId": "job-42"}, nil)

	assert.Equal(t, entities.StatusSynced, action.Status())
	assert.Equal(t, 1, action.Attempts())
	require.Equal(t, 1, f.handler.calls())
	assert.Equal(t, action.ID(), f.handler.invocations[0].ActionID)
	assert.Equal(t, 1.0, f.metrics.Counter(observability.MetricActionsSynced))

	// Already executed, nothing left for the replayer
	processed, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Equal(t, 1, f.handler.calls())
}

func TestDispatch_OnlineFailureSurfacedToCaller(t *testing.T) {
	f := newFixture(t)
	f.monitor.set(true)
	f.handler.fail(pkgerrors.NewSyncRetryableError("connection reset", nil))

	action, err := f.dispatcher.Dispatch(context.Background(), Request{
		Screen:     "job_detail",
		EntityID:   "job-42",
		DeviceID:   "device-1",
		ActionName: "complete_job",
	}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsSyncRetryable(err))

	// The action stays queued under its classified status, so the
	// replay loop can pick it up later; dispatch itself never retries
	require.NotNil(t, action)
	assert.Equal(t, entities.StatusFailedRetryable, action.Status())
	assert.Equal(t, 1, f.handler.calls())

	_, err = f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)

	stored, err := f.store.Get(context.Background(), action.ID())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSynced, stored.Status())
	assert.Equal(t, 2, stored.Attempts())
}

func TestDispatch_OnlinePermanentFailureRetained(t *testing.T) {
	f := newFixture(t)
	f.monitor.set(true)
	f.handler.fail(pkgerrors.NewSyncPermanentError("server rejected payload", nil))

	action, err := f.dispatcher.Dispatch(context.Background(), Request{
		Screen:     "job_detail",
		DeviceID:   "device-1",
		ActionName: "complete_job",
	}, nil)
	require.Error(t, err)

	stored, getErr := f.store.Get(context.Background(), action.ID())
	require.NoError(t, getErr)
	assert.Equal(t, entities.StatusFailedPermanent, stored.Status())
	assert.Equal(t, 1.0, f.metrics.Counter(observability.MetricActionsFailed))
}

func TestDispatch_UnknownAction(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Dispatch(context.Background(), Request{
		DeviceID:   "device-1",
		ActionName: "not_registered",
	}, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeDispatch))
}

func TestDispatch_ResolvesParamsAtDispatchTime(t *testing.T) {
	f := newFixture(t)

	scope := mapScope{
		"entity.id":   "job-42",
		"input.notes": "ants in kitchen",
		"input.qty":   float64(3),
	}

	action := f.dispatch(t, "complete_job", map[string]interface{}{
		"jobId": "{{entity.id}}",
		"notes": "{{input.notes}}",
		"qty":   "{{input.qty}}",
		"fixed": "literal",
	}, scope)

	payload := action.Payload()
	assert.Equal(t, "job-42", payload["jobId"])
	assert.Equal(t, "ants in kitchen", payload["notes"])
	assert.Equal(t, float64(3), payload["qty"], "whole expressions keep their type")
	assert.Equal(t, "literal", payload["fixed"])
}

func TestDispatch_ValidationRejectsOversizedPayload(t *testing.T) {
	f := newFixture(t)
	f.cfg.MaxPayloadBytes = 16

	dispatcher := NewDispatcher(f.store, NewRegistry(f.handler), binding.NewResolver(zap.NewNop()), validators.NewActionValidator(f.cfg), nil, f.metrics, f.monitor, zap.NewNop())

	_, err := dispatcher.Dispatch(context.Background(), Request{
		DeviceID:   "device-1",
		ActionName: "complete_job",
		Params:     map[string]interface{}{"notes": "far too long for the configured limit"},
	}, nil)
	assert.Error(t, err)
}

func TestProcessBatch_SuccessfulSync(t *testing.T) {
	f := newFixture(t)
	action := f.dispatch(t, "complete_job", map[string]interface{}{"jobId": "job-42"}, nil)
	f.monitor.set(true)

	processed, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	stored, err := f.store.Get(context.Background(), action.ID())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusSynced, stored.Status())
	assert.Equal(t, 1, stored.Attempts())

	require.Equal(t, 1, f.handler.calls())
	invocation := f.handler.invocations[0]
	assert.Equal(t, action.ID(), invocation.ActionID)
	assert.Equal(t, "complete_job", invocation.ActionName)
	assert.Equal(t, "device-1", invocation.DeviceID)
	assert.Equal(t, "job-42", invocation.Payload["jobId"])

	assert.Equal(t, 1.0, f.metrics.Counter(observability.MetricActionsSynced))
}

func TestProcessBatch_OfflineIsANoOp(t *testing.T) {
	f := newFixture(t)
	f.monitor.set(false)

	action := f.dispatch(t, "complete_job", nil, nil)

	processed, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Equal(t, 0, f.handler.calls())

	stored, _ := f.store.Get(context.Background(), action.ID())
	assert.Equal(t, entities.StatusPending, stored.Status())
}

func TestProcessBatch_RetryableFailureThenRecovery(t *testing.T) {
	f := newFixture(t)
	f.handler.fail(pkgerrors.NewSyncRetryableError("connection reset", nil))

	action := f.dispatch(t, "complete_job", nil, nil)
	f.monitor.set(true)

	_, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)

	stored, _ := f.store.Get(context.Background(), action.ID())
	assert.Equal(t, entities.StatusFailedRetryable, stored.Status())
	assert.Equal(t, "SYNC_RETRYABLE: connection reset", stored.LastError())
	assert.Equal(t, 1.0, f.metrics.Counter(observability.MetricActionsRetried))

	// Next pass picks it up again and succeeds
	_, err = f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)

	stored, _ = f.store.Get(context.Background(), action.ID())
	assert.Equal(t, entities.StatusSynced, stored.Status())
	assert.Equal(t, 2, stored.Attempts())
}

func TestProcessBatch_PermanentFailureIsNotRetried(t *testing.T) {
	f := newFixture(t)
	f.handler.fail(pkgerrors.NewSyncPermanentError("server rejected payload", nil))

	action := f.dispatch(t, "complete_job", nil, nil)
	f.monitor.set(true)

	_, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)

	stored, _ := f.store.Get(context.Background(), action.ID())
	assert.Equal(t, entities.StatusFailedPermanent, stored.Status())
	assert.Equal(t, 1.0, f.metrics.Counter(observability.MetricActionsFailed))

	processed, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Equal(t, 1, f.handler.calls())
}

func TestProcessBatch_RetryBudgetExhaustion(t *testing.T) {
	f := newFixture(t)
	f.handler.fail(
		pkgerrors.NewSyncRetryableError("timeout", nil),
		pkgerrors.NewSyncRetryableError("timeout", nil),
		pkgerrors.NewSyncRetryableError("timeout", nil),
	)

	action := f.dispatch(t, "complete_job", nil, nil)
	f.monitor.set(true)

	for i := 0; i < 3; i++ {
		_, err := f.replayer.ProcessBatch(context.Background())
		require.NoError(t, err)
	}

	stored, _ := f.store.Get(context.Background(), action.ID())
	assert.Equal(t, entities.StatusFailedPermanent, stored.Status())
	assert.Equal(t, 3, stored.Attempts(), "MaxSyncRetries bounds the attempts")
}

func TestProcessBatch_HandlerGoneIsPermanent(t *testing.T) {
	f := newFixture(t)
	action := f.dispatch(t, "add_note", nil, nil)
	f.monitor.set(true)

	// The handler registry changes between enqueue and replay
	f.replayer.registry = NewRegistry(newFakeHandler("complete_job"))

	_, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)

	stored, _ := f.store.Get(context.Background(), action.ID())
	assert.Equal(t, entities.StatusFailedPermanent, stored.Status())
}

func TestRequeue_PutsPermanentActionBack(t *testing.T) {
	f := newFixture(t)
	f.handler.fail(pkgerrors.NewSyncPermanentError("rejected", nil))

	action := f.dispatch(t, "complete_job", nil, nil)
	f.monitor.set(true)

	_, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)

	stored, _ := f.store.Get(context.Background(), action.ID())
	require.Equal(t, entities.StatusFailedPermanent, stored.Status())

	require.NoError(t, f.dispatcher.Requeue(context.Background(), stored))
	assert.Equal(t, entities.StatusPending, stored.Status())
	assert.Equal(t, 0, stored.Attempts())

	_, err = f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)

	stored, _ = f.store.Get(context.Background(), action.ID())
	assert.Equal(t, entities.StatusSynced, stored.Status())
}

func TestOfflineCaptureThenReconnect(t *testing.T) {
	f := newFixture(t)
	f.monitor.set(false)

	// Technician works offline: several actions pile up
	first := f.dispatch(t, "complete_job", map[string]interface{}{"jobId": "job-1"}, nil)
	second := f.dispatch(t, "add_note", map[string]interface{}{"note": "gate code 4411"}, nil)

	processed, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	// Back in coverage
	f.monitor.set(true)

	processed, err = f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	for _, action := range []*entities.PendingAction{first, second} {
		stored, err := f.store.Get(context.Background(), action.ID())
		require.NoError(t, err)
		assert.Equal(t, entities.StatusSynced, stored.Status())
	}

	// Oldest first
	require.Equal(t, 2, f.handler.calls())
	assert.Equal(t, first.ID(), f.handler.invocations[0].ActionID)
	assert.Equal(t, second.ID(), f.handler.invocations[1].ActionID)
}

func TestProcessBatch_StopsMidBatchWhenConnectivityDrops(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, "complete_job", nil, nil)
	second := f.dispatch(t, "add_note", nil, nil)
	f.monitor.set(true)

	// The first replay knocks the device offline mid-batch
	f.replayer.registry = NewRegistry(&droppingHandler{inner: f.handler, monitor: f.monitor})

	processed, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, processed, "batch size counts what was fetched")
	assert.Equal(t, 1, f.handler.calls(), "replay stopped after connectivity dropped")

	stored, _ := f.store.Get(context.Background(), second.ID())
	assert.Equal(t, entities.StatusPending, stored.Status())
}

// droppingHandler executes one action then takes the device offline
type droppingHandler struct {
	inner   *fakeHandler
	monitor *fakeMonitor
}

func (h *droppingHandler) CanHandle(name string) bool { return h.inner.CanHandle(name) }

func (h *droppingHandler) Execute(ctx context.Context, invocation ports.ActionInvocation) error {
	err := h.inner.Execute(ctx, invocation)
	h.monitor.set(false)
	return err
}

// dedupingHandler applies each distinct action ID once, the way the
// field-service API deduplicates on the Idempotency-Key header
type dedupingHandler struct {
	mu         sync.Mutex
	deliveries map[string]int
	effects    int
}

func newDedupingHandler() *dedupingHandler {
	return &dedupingHandler{deliveries: make(map[string]int)}
}

func (h *dedupingHandler) CanHandle(string) bool { return true }

func (h *dedupingHandler) Execute(ctx context.Context, invocation ports.ActionInvocation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := invocation.ActionID.String()
	h.deliveries[id]++
	if h.deliveries[id] == 1 {
		h.effects++
	}
	return nil
}

func TestReplay_DuplicateDeliveryAppliesOnce(t *testing.T) {
	f := newFixture(t)
	handler := newDedupingHandler()
	f.replayer.registry = NewRegistry(handler)

	action := f.dispatch(t, "complete_job", map[string]interface{}{"jobId": "job-42"}, nil)
	f.monitor.set(true)

	_, err := f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)

	// Crash after the handler call but before the synced status was
	// persisted: the store still holds the action as pending, so the
	// next drain delivers the same ID again
	stale, err := entities.ReconstructPendingAction(
		action.ID(),
		action.DeviceID(), action.UserID(), action.ActionName(), action.Screen(), action.EntityID(),
		action.Payload(),
		entities.StatusPending, 0, "",
		action.CreatedAt(), time.Now(), time.Time{},
	)
	require.NoError(t, err)
	require.NoError(t, f.store.Update(context.Background(), stale))

	_, err = f.replayer.ProcessBatch(context.Background())
	require.NoError(t, err)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	assert.Len(t, handler.deliveries, 1, "both replays carried the same action ID")
	assert.Equal(t, 2, handler.deliveries[action.ID().String()])
	assert.Equal(t, 1, handler.effects, "duplicate delivery applied exactly once")
}

func TestGetStats(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, "complete_job", nil, nil)
	f.dispatch(t, "add_note", nil, nil)

	stats, err := f.replayer.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats["pending"])
	assert.Equal(t, 0, stats["synced"])
	assert.Equal(t, f.cfg.SyncBatchSize, stats["batchSize"])
}
