package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCounters(t *testing.T) {
	m := New()
	m.Loaded(map[string]float64{"AAPL": 3}, 1)
	m.TradePlaced("buy", "AAPL", 13, 2)
	m.TradePlaced("sell", "AAPL", 9, 3)
	m.TradeCancelled("buy", "AAPL", -1, 2)
	m.TradeRejected("invalid")
	m.PersistFailed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.tradesPlaced.WithLabelValues("buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tradesPlaced.WithLabelValues("sell")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tradesCancelled.WithLabelValues("buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tradesRejected.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persistFailures))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.positions.WithLabelValues("AAPL")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activeTrades))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodPost, "POST /trade", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `tradrx_http_requests_total{code="200",method="POST",route="POST /trade"} 1`), body)
	assert.Contains(t, body, "tradrx_http_request_duration_seconds_bucket")
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.TradePlaced("buy", "AAPL", 1, 1)
	m.TradeCancelled("buy", "AAPL", 0, 0)
	m.TradeRejected("invalid")
	m.PersistFailed()
	m.Loaded(nil, 0)
	m.ObserveHTTP("GET", "/", 200, time.Millisecond)
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
