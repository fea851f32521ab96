package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectorsWithoutPanicking(t *testing.T) {
	m := New()
	require.NotNil(t, m)

	m.MigrationsDetected.Inc()
	m.MigrationsFiltered.WithLabelValues("stale").Inc()
	m.SnipesAttempted.Inc()
	m.SnipesSucceeded.Inc()
	m.SnipesFailed.WithLabelValues("insufficient_liquidity").Inc()
	m.PositionsOpened.Inc()
	m.PositionsClosed.WithLabelValues("take_profit").Inc()
	m.BuyLatencySeconds.Observe(0.25)
	m.SellLatencySeconds.Observe(0.1)
	m.WalletLockWaitSeconds.Observe(0.01)
	m.QueueDepth.Set(3)
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	m := New()
	m.MigrationsDetected.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "sniper_migrations_detected_total 1")
}
