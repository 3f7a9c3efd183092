package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type changeRecorder struct {
	mu      sync.Mutex
	changes []string
	notify  chan struct{}
}

func newChangeRecorder() *changeRecorder {
	return &changeRecorder{notify: make(chan struct{}, 16)}
}

func (r *changeRecorder) record(screen string, version int) {
	r.mu.Lock()
	r.changes = append(r.changes, fmt.Sprintf("%s/%d", screen, version))
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *changeRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for a change notification")
	}
}

func (r *changeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.changes...)
}

func TestScreenWatcher_NotifiesOnVersionWrite(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewScreenWatcher(dir, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	recorder := newChangeRecorder()
	watcher.OnChange(recorder.record)
	watcher.Start()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "job_detail_v2.json"),
		[]byte(`{"screen":"job_detail","schemaVersion":2}`),
		0o644,
	))

	recorder.wait(t)
	assert.Contains(t, recorder.snapshot(), "job_detail/2")
}

func TestScreenWatcher_BareNameIsVersionOne(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewScreenWatcher(dir, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	recorder := newChangeRecorder()
	watcher.OnChange(recorder.record)
	watcher.Start()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "settings.json"),
		[]byte(`{"screen":"settings","schemaVersion":1}`),
		0o644,
	))

	recorder.wait(t)
	assert.Contains(t, recorder.snapshot(), "settings/1")
}

func TestScreenWatcher_IgnoresNonScreenFiles(t *testing.T) {
	dir := t.TempDir()

	watcher, err := NewScreenWatcher(dir, zap.NewNop())
	require.NoError(t, err)
	defer watcher.Stop()

	recorder := newChangeRecorder()
	watcher.OnChange(recorder.record)
	watcher.Start()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644))

	select {
	case <-recorder.notify:
		t.Fatal("non-screen files must not notify")
	case <-time.After(debounceDuration * 2):
	}
}
