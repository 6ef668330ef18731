package mosaic

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.request(opTick)
		m.rejected(opTick)
		m.tickCoalesced()
		m.step(time.Millisecond, 3)
		m.frame()
		m.snapshotApplied()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.request(opRegister)
	m.request(opRegister)
	m.rejected(opRegister)
	m.step(2*time.Millisecond, 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(opRegister)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.bodies))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stepDuration))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `mosaic_bridge_requests_total{op="register"} 2`)
	assert.Contains(t, string(body), `mosaic_bridge_rejections_total{op="register"} 1`)
	assert.Contains(t, string(body), "mosaic_physics_bodies 7")
	assert.Contains(t, string(body), "mosaic_physics_step_seconds_count 1")
}
