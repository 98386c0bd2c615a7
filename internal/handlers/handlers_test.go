package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repurposer/internal/config"
	"repurposer/internal/metrics"
)

type staticCounter struct{ authorized, active int }

func (s staticCounter) Counts() (int, int) { return s.authorized, s.active }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newRouter(backend Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlerSet(zerolog.Nop(), &config.AppConfig{Environment: "test"}, staticCounter{authorized: 3, active: 1}, backend)
	engine := gin.New()
	h.Register(engine.Group("/api"))
	h.RegisterMetrics(engine)
	return engine
}

func getHealth(t *testing.T, engine *gin.Engine) (int, healthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		backend Pinger
		code    int
		status  string
		ledger  string
	}{
		{name: "file backend", backend: nil, code: http.StatusOK, status: "ok", ledger: "disabled"},
		{name: "redis up", backend: pingFunc(func(context.Context) error { return nil }), code: http.StatusOK, status: "ok", ledger: "ok"},
		{name: "redis down", backend: pingFunc(func(context.Context) error { return errors.New("refused") }), code: http.StatusServiceUnavailable, status: "degraded", ledger: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := getHealth(t, newRouter(tt.backend))
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.ledger, body.Ledger)
			assert.Equal(t, 3, body.Authorized)
			assert.Equal(t, 1, body.InFlight)
			assert.Equal(t, "test", body.Environment)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.Update("command")

	rec := httptest.NewRecorder()
	newRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `repurposer_updates_total{type="command"}`))
}
