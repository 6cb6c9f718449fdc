package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets/:tid", http.MethodGet, 200, 2*time.Millisecond)
	m.RecordRequest("/tickets/:tid", http.MethodGet, 200, 4*time.Millisecond)
	m.RecordError("/tickets/:tid", http.MethodGet, "NOT_FOUND")

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.TotalRequests)
	assert.InDelta(t, 3.0, snap.AverageLatencyMs, 0.001)
	assert.EqualValues(t, 2, snap.Requests["GET /tickets/:tid 200"])
	assert.EqualValues(t, 1, snap.Errors["GET /tickets/:tid NOT_FOUND"])

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordRequest("/", http.MethodGet, 200, 0) })
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/tickets/:tid", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/tickets/42", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-1", resp.Header.Get(RequestIDHeader))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/tickets/42", entries[0].ContextMap()["path"])
	assert.EqualValues(t, 1, metrics.Snapshot().Requests["GET /tickets/:tid 204"])
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = NewLogger(config.LoggerConfig{Level: "nonsense"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}
