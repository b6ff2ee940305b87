package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestReadyEndpointGate(t *testing.T) {
	s := New()

	rec := httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.SetReady(true)
	rec = httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", probeBody(t, rec)["status"])
}

func TestCheckFailureThreshold(t *testing.T) {
	c := &check{name: "db", timeout: time.Second, fn: func(context.Context) error {
		return errors.New("connection refused")
	}}
	c.healthy.Store(true)

	ctx := context.Background()
	c.run(ctx)
	c.run(ctx)
	assert.True(t, c.healthy.Load(), "two failures must not flip the check")

	c.run(ctx)
	assert.False(t, c.healthy.Load())

	c.fn = func(context.Context) error { return nil }
	c.run(ctx)
	assert.True(t, c.healthy.Load(), "one success must restore the check")
}

func TestReadyEndpointReportsFailingCheck(t *testing.T) {
	s := New()
	s.SetReady(true)
	s.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	for i := 0; i < failureThreshold; i++ {
		s.readiness[0].run(context.Background())
	}

	rec := httptest.NewRecorder()
	s.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := probeBody(t, rec)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "connection refused", checks["db"])
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
