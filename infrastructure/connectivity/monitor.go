package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fieldui/application/ports"

	"go.uber.org/zap"
)

// Monitor tracks connectivity and fans state changes out to
// subscribers. The state itself is fed either manually, the mobile
// shell reports OS reachability changes, or by the Prober below.
type Monitor struct {
	mu          sync.RWMutex
	online      bool
	subscribers map[int]func(online bool)
	nextID      int
	logger      *zap.Logger
}

// NewMonitor creates a monitor with the given initial state
func NewMonitor(online bool, logger *zap.Logger) *Monitor {
	return &Monitor{
		online:      online,
		subscribers: make(map[int]func(online bool)),
		logger:      logger,
	}
}

var _ ports.ConnectivityMonitor = (*Monitor)(nil)

// IsOnline reports current connectivity
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a connectivity change. Subscribers are only
// notified on actual transitions.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	callbacks := make([]func(bool), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	m.logger.Info("connectivity changed", zap.Bool("online", online))

	for _, fn := range callbacks {
		fn(online)
	}
}

// Subscribe registers a callback invoked on connectivity changes. The
// returned function unsubscribes.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.subscribers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Prober drives a Monitor by polling the sync endpoint. Used where no
// OS reachability signal exists, local development and the sync
// service's own health loop.
type Prober struct {
	monitor  *Monitor
	endpoint string
	interval time.Duration
	client   *http.Client
	logger   *zap.Logger

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewProber creates a prober that HEADs endpoint every interval
func NewProber(monitor *Monitor, endpoint string, interval time.Duration, logger *zap.Logger) *Prober {
	return &Prober{
		monitor:  monitor,
		endpoint: endpoint,
		interval: interval,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger:      logger,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start begins probing in a background goroutine
func (p *Prober) Start(ctx context.Context) {
	go p.probeLoop(ctx)
	p.logger.Info("connectivity prober started",
		zap.String("endpoint", p.endpoint),
		zap.Duration("interval", p.interval),
	)
}

// Stop stops the prober and waits for the loop to exit
func (p *Prober) Stop() {
	close(p.stopChan)
	<-p.stoppedChan
}

func (p *Prober) probeLoop(ctx context.Context) {
	defer close(p.stoppedChan)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.monitor.SetOnline(p.probe(ctx))

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.monitor.SetOnline(p.probe(ctx))
		}
	}
}

// probe reports whether the endpoint answered at all. Any HTTP status
// counts as reachable, only transport failures count as offline.
func (p *Prober) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
