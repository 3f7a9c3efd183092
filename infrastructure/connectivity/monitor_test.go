package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMonitor_SetOnlineNotifiesOnTransitionsOnly(t *testing.T) {
	m := NewMonitor(true, zap.NewNop())
	assert.True(t, m.IsOnline())

	var notifications []bool
	m.Subscribe(func(online bool) {
		notifications = append(notifications, online)
	})

	m.SetOnline(true) // no transition
	m.SetOnline(false)
	m.SetOnline(false) // no transition
	m.SetOnline(true)

	assert.Equal(t, []bool{false, true}, notifications)
	assert.True(t, m.IsOnline())
}

func TestMonitor_Unsubscribe(t *testing.T) {
	m := NewMonitor(true, zap.NewNop())

	calls := 0
	unsubscribe := m.Subscribe(func(bool) { calls++ })

	m.SetOnline(false)
	assert.Equal(t, 1, calls)

	unsubscribe()
	m.SetOnline(true)
	assert.Equal(t, 1, calls)
}

func TestMonitor_MultipleSubscribers(t *testing.T) {
	m := NewMonitor(false, zap.NewNop())

	a, b := 0, 0
	m.Subscribe(func(bool) { a++ })
	m.Subscribe(func(bool) { b++ })

	m.SetOnline(true)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func waitForState(t *testing.T, m *Monitor, online bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if m.IsOnline() == online {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("monitor never reached online=%v", online)
}

func TestProber_DetectsReachabilityChanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Even an error status means the endpoint is reachable
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	m := NewMonitor(false, zap.NewNop())
	prober := NewProber(m, server.URL, 20*time.Millisecond, zap.NewNop())
	prober.Start(context.Background())
	defer prober.Stop()

	waitForState(t, m, true)

	// The server goes away, transport errors flip the monitor offline
	server.Close()
	waitForState(t, m, false)
}

func TestProber_StopWaitsForLoopExit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	m := NewMonitor(false, zap.NewNop())
	prober := NewProber(m, server.URL, time.Hour, zap.NewNop())
	prober.Start(context.Background())

	done := make(chan struct{})
	go func() {
		prober.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		require.Fail(t, "Stop did not return")
	}
}
