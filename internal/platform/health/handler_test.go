package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func get(t *testing.T, router chi.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleStatus(t *testing.T) {
	h := New("Issuance", "development", "worker-7")
	rec := get(t, newRouter(h), "/api/health")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Issuance service is healthy", resp.Message)
	assert.Equal(t, "worker-7", resp.WorkerID)

	ts, err := time.Parse(time.RFC3339, resp.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

func TestHandleLiveness(t *testing.T) {
	h := New("Issuance", "development", "worker-1")
	rec := get(t, newRouter(h), "/health/live")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rec.Body.String())
}

func TestHandleReadiness(t *testing.T) {
	t.Run("no checks is ready", func(t *testing.T) {
		h := New("Issuance", "development", "worker-1")
		rec := get(t, newRouter(h), "/health/ready")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("healthy checks", func(t *testing.T) {
		h := New("Issuance", "development", "worker-1")
		h.RegisterCheck("database", func() error { return nil })
		rec := get(t, newRouter(h), "/health/ready")

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, "up", resp.Checks["database"])
	})

	t.Run("failing check returns 503", func(t *testing.T) {
		h := New("Issuance", "development", "worker-1")
		h.RegisterCheck("database", func() error { return nil })
		h.RegisterCheck("redis", func() error { return errors.New("connection refused") })
		rec := get(t, newRouter(h), "/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "up", resp.Checks["database"])
		assert.Equal(t, "down: connection refused", resp.Checks["redis"])
	})
}
