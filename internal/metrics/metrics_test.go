package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_New(t *testing.T) {
	m := New()
	assert.NotNil(t, m.ActionsTotal)
	assert.NotNil(t, m.ActionDuration)
	assert.NotNil(t, m.DedupeHits)
	assert.NotNil(t, m.ItemsCurrent)
	assert.NotNil(t, m.SyncClients)
	assert.NotNil(t, m.ErrorsTotal)
}

func TestMetrics_RecordAction(t *testing.T) {
	m := New()
	m.RecordAction("createItem", "ok")
	m.RecordAction("createItem", "ok")
	m.RecordAction("deleteItem", "error")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `canvas_actions_total{action="createItem",outcome="ok"} 2`)
	assert.Contains(t, body, `canvas_actions_total{action="deleteItem",outcome="error"} 1`)
}

func TestMetrics_RecordError(t *testing.T) {
	m := New()
	m.RecordError("auth", "backend_unreachable")

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `canvas_errors_total{module="auth",type="backend_unreachable"} 1`)
}

func TestMetrics_ObserveActionDuration(t *testing.T) {
	m := New()
	m.ObserveActionDuration("createItem", 150*time.Millisecond)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "canvas_action_duration_seconds")
}

func TestMetrics_DedupeHits(t *testing.T) {
	m := New()
	m.DedupeHits.WithLabelValues("throttle").Inc()

	body := getMetricsBody(t, m)
	assert.Contains(t, body, `canvas_dedupe_hits_total{rule="throttle"} 1`)
}

func TestMetrics_Gauges(t *testing.T) {
	m := New()
	m.ItemsCurrent.Set(3)
	m.SyncClients.Set(2)

	body := getMetricsBody(t, m)
	assert.Contains(t, body, "canvas_items_current 3")
	assert.Contains(t, body, "canvas_sync_clients 2")
}

func getMetricsBody(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}
