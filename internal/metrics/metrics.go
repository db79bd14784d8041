// Package metrics exposes Prometheus collectors for the ledger and the HTTP
// API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on a private registry. All
// methods are safe on a nil receiver so callers may run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	tradesPlaced    *prometheus.CounterVec
	tradesCancelled *prometheus.CounterVec
	tradesRejected  *prometheus.CounterVec
	persistFailures prometheus.Counter
	activeTrades    prometheus.Gauge
	positions       *prometheus.GaugeVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tradesPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradrx",
			Name:      "trades_placed_total",
			Help:      "Trades booked, by action.",
		}, []string{"action"}),
		tradesCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradrx",
			Name:      "trades_cancelled_total",
			Help:      "Trades cancelled, by action of the cancelled trade.",
		}, []string{"action"}),
		tradesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradrx",
			Name:      "trades_rejected_total",
			Help:      "Trade requests rejected before booking, by reason.",
		}, []string{"reason"}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tradrx",
			Name:      "snapshot_persist_failures_total",
			Help:      "Snapshot writes that failed; the mutation was not applied.",
		}),
		activeTrades: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tradrx",
			Name:      "active_trades",
			Help:      "Trades currently in the ledger.",
		}),
		positions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tradrx",
			Name:      "position_net_quantity",
			Help:      "Net signed quantity per symbol.",
		}, []string{"symbol"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tradrx",
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tradrx",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tradesPlaced, m.tradesCancelled, m.tradesRejected, m.persistFailures,
		m.activeTrades, m.positions, m.httpRequests, m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TradePlaced records a booked trade and the symbol's new position.
func (m *Metrics) TradePlaced(action, symbol string, position float64, active int) {
	if m == nil {
		return
	}
	m.tradesPlaced.WithLabelValues(action).Inc()
	m.positions.WithLabelValues(symbol).Set(position)
	m.activeTrades.Set(float64(active))
}

// TradeCancelled records a cancellation and the symbol's new position.
func (m *Metrics) TradeCancelled(action, symbol string, position float64, active int) {
	if m == nil {
		return
	}
	m.tradesCancelled.WithLabelValues(action).Inc()
	m.positions.WithLabelValues(symbol).Set(position)
	m.activeTrades.Set(float64(active))
}

// TradeRejected counts a request refused before booking.
func (m *Metrics) TradeRejected(reason string) {
	if m == nil {
		return
	}
	m.tradesRejected.WithLabelValues(reason).Inc()
}

// PersistFailed counts a failed snapshot write.
func (m *Metrics) PersistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

// Loaded seeds the gauges from a freshly loaded ledger.
func (m *Metrics) Loaded(positions map[string]float64, active int) {
	if m == nil {
		return
	}
	for sym, qty := range positions {
		m.positions.WithLabelValues(sym).Set(qty)
	}
	m.activeTrades.Set(float64(active))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
