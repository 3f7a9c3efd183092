package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fieldui/application/ports"
	"fieldui/domain/core/valueobjects"
	pkgerrors "fieldui/pkg/errors"
)

func testInvocation() ports.ActionInvocation {
	return ports.ActionInvocation{
		ActionID:   valueobjects.NewActionID(),
		ActionName: "complete_job",
		EntityID:   "job-42",
		Screen:     "job_detail",
		DeviceID:   "device-1",
		UserID:     "user-1",
		Payload:    map[string]interface{}{"notes": "done"},
		Attempt:    2,
	}
}

func newHandler(endpoint string, authToken func() string) *ActionHandler {
	return NewActionHandler(endpoint, 5*time.Second, authToken, zap.NewNop())
}

func TestExecute_PostsInvocation(t *testing.T) {
	invocation := testInvocation()

	var got syncRequest
	var header http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/actions/complete_job", r.URL.Path)
		header = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	handler := newHandler(server.URL, func() string { return "token-123" })
	require.NoError(t, handler.Execute(context.Background(), invocation))

	assert.Equal(t, invocation.ActionID.String(), got.ActionID)
	assert.Equal(t, "complete_job", got.ActionName)
	assert.Equal(t, "job-42", got.EntityID)
	assert.Equal(t, "device-1", got.DeviceID)
	assert.Equal(t, 2, got.Attempt)
	assert.Equal(t, "done", got.Payload["notes"])

	assert.Equal(t, invocation.ActionID.String(), header.Get("Idempotency-Key"))
	assert.Equal(t, "device-1", header.Get("X-Device-ID"))
	assert.Equal(t, "Bearer token-123", header.Get("Authorization"))
}

func TestExecute_NoAuthWhenTokenSourceNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	handler := newHandler(server.URL, nil)
	assert.NoError(t, handler.Execute(context.Background(), testInvocation()))
}

func TestExecute_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		retryable bool
	}{
		{"200 succeeds", http.StatusOK, "", false, false},
		{"202 succeeds", http.StatusAccepted, "", false, false},
		{"409 already applied counts as success", http.StatusConflict, "", false, false},
		{"400 is permanent", http.StatusBadRequest, `{"error":{"message":"bad payload"}}`, true, false},
		{"401 is permanent", http.StatusUnauthorized, "", true, false},
		{"403 is permanent", http.StatusForbidden, "", true, false},
		{"422 is permanent", http.StatusUnprocessableEntity, "", true, false},
		{"500 is retryable", http.StatusInternalServerError, "", true, true},
		{"503 is retryable", http.StatusServiceUnavailable, "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			defer server.Close()

			err := newHandler(server.URL, nil).Execute(context.Background(), testInvocation())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.retryable, pkgerrors.IsSyncRetryable(err))
		})
	}
}

func TestExecute_ErrorDetailFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"entity job-42 not assigned to this technician"}}`))
	}))
	defer server.Close()

	err := newHandler(server.URL, nil).Execute(context.Background(), testInvocation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity job-42 not assigned to this technician")
}

func TestExecute_TransportErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	err := newHandler(server.URL, nil).Execute(context.Background(), testInvocation())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsSyncRetryable(err), "transport failures stay retryable")
}

func TestCanHandle_AcceptsEverything(t *testing.T) {
	handler := newHandler("http://localhost", nil)
	assert.True(t, handler.CanHandle("complete_job"))
	assert.True(t, handler.CanHandle("anything_else"))
}

func TestLoopbackHandler(t *testing.T) {
	handler := NewLoopbackHandler(zap.NewNop())
	assert.True(t, handler.CanHandle("anything"))
	assert.NoError(t, handler.Execute(context.Background(), testInvocation()))
}
