package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordExecutorOutcomes(t *testing.T) {
	server, _ := newTokenServer(t, acceptOnly())
	store := newTestStore(t, "expired-A", "valid-R")
	reg := prometheus.NewRegistry()
	executor, _ := newTestExecutor(t, store, renewTo("fresh-B"), WithRegisterer(reg))

	_, err := executor.Execute(context.Background(), NewRequest(http.MethodGet, server.URL+"/cart", nil))
	require.ErrorIs(t, err, ErrSessionExpired)

	m := executor.metrics
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests))
	assert.Equal(t, float64(MaxRenewals), testutil.ToFloat64(m.Renewals.WithLabelValues(resultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Terminations.WithLabelValues(reasonExhausted)))

	count, err := testutil.GatherAndCount(reg, "storefront_session_requests_total", "storefront_session_terminations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_RejectedRenewal(t *testing.T) {
	server, _ := newTokenServer(t, acceptOnly())
	store := newTestStore(t, "expired-A", "revoked-R")
	executor, _ := newTestExecutor(t, store, rejectRenewal(), WithRegisterer(prometheus.NewRegistry()))

	_, err := executor.Execute(context.Background(), NewRequest(http.MethodGet, server.URL+"/cart", nil))
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, float64(1), testutil.ToFloat64(executor.metrics.Renewals.WithLabelValues(resultRejected)))
	assert.Equal(t, float64(1), testutil.ToFloat64(executor.metrics.Terminations.WithLabelValues(reasonRejected)))
}

func TestNewMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	first.Requests.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(second.Requests), "collectors are reused")
}

func TestNewMetrics_Unregistered(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	m.Requests.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Requests))
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	m.Renewals.WithLabelValues(resultSuccess).Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `storefront_session_renewals_total{result="success"} 1`)
}
