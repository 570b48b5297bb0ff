package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bcnelson/fulcrum-data-manager/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := metrics.New()
	m.ObserveOperation("set", "create set", nil, 5*time.Millisecond)
	m.ObserveOperation("set", "create set", errors.New("boom"), time.Millisecond)
	m.ObserveOperation("tag", "list tags", nil, time.Millisecond)

	want := `
# HELP fulcrum_repository_operations_total Repository operations by entity, operation and outcome.
# TYPE fulcrum_repository_operations_total counter
fulcrum_repository_operations_total{entity="set",op="create set",outcome="error"} 1
fulcrum_repository_operations_total{entity="set",op="create set",outcome="success"} 1
fulcrum_repository_operations_total{entity="tag",op="list tags",outcome="success"} 1
`
	err := testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(want), "fulcrum_repository_operations_total")
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(m.Gatherer(), "fulcrum_repository_operation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestObserveRequest(t *testing.T) {
	m := metrics.New()
	m.ObserveRequest(http.MethodGet, http.StatusOK)
	m.ObserveRequest(http.MethodGet, http.StatusOK)
	m.ObserveRequest(http.MethodPost, http.StatusBadRequest)

	want := `
# HELP fulcrum_http_requests_total HTTP requests by method and status code.
# TYPE fulcrum_http_requests_total counter
fulcrum_http_requests_total{method="GET",status="200"} 2
fulcrum_http_requests_total{method="POST",status="400"} 1
`
	err := testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(want), "fulcrum_http_requests_total")
	require.NoError(t, err)
}

func TestHandlerServesText(t *testing.T) {
	m := metrics.New()
	m.ObserveRequest(http.MethodGet, http.StatusOK)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "fulcrum_http_requests_total")
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("set", "list sets", nil, time.Millisecond)
		m.ObserveRequest(http.MethodGet, http.StatusOK)
	})

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
