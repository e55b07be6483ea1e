// Package metrics holds the Prometheus collectors for the decision loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every collector the bot exports. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	Cycles        *prometheus.CounterVec
	DroppedFrames *prometheus.CounterVec
	FetchFailures *prometheus.CounterVec
	FetchLatency  *prometheus.HistogramVec
	CycleDuration *prometheus.HistogramVec
	LagTotal      *prometheus.CounterVec
	Spread        *prometheus.GaugeVec
	OpenPositions prometheus.Gauge
	Trades        *prometheus.CounterVec
	RealizedPnL   prometheus.Gauge
	EventsDropped prometheus.Counter
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "spreadbot_cycles_total", Help: "Completed sampling cycles"},
			[]string{"symbol"},
		),
		DroppedFrames: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "spreadbot_dropped_frames_total", Help: "Cycles without a valid spread sample"},
			[]string{"symbol"},
		),
		FetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "spreadbot_fetch_failures_total", Help: "Failed venue price fetches"},
			[]string{"venue", "reason"},
		),
		FetchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spreadbot_fetch_latency_seconds",
				Help:    "Venue price fetch latency",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"venue"},
		),
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spreadbot_cycle_duration_seconds",
				Help:    "Wall time of one fetch/decide iteration",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"symbol"},
		),
		LagTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "spreadbot_loop_lag_total", Help: "Iterations that overran the poll interval"},
			[]string{"symbol"},
		),
		Spread: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "spreadbot_spread_pct", Help: "Last observed spread in percent"},
			[]string{"symbol"},
		),
		OpenPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "spreadbot_open_positions", Help: "Currently open positions"},
		),
		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "spreadbot_trades_total", Help: "Position transitions"},
			[]string{"symbol", "action"},
		),
		RealizedPnL: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "spreadbot_realized_pnl_usd", Help: "Sum of closed position PnL"},
		),
		EventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "spreadbot_events_dropped_total", Help: "Side-channel events dropped on a full queue"},
		),
	}

	m.registry.MustRegister(
		m.Cycles, m.DroppedFrames, m.FetchFailures, m.FetchLatency,
		m.CycleDuration, m.LagTotal, m.Spread, m.OpenPositions,
		m.Trades, m.RealizedPnL, m.EventsDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one venue fetch. reason is empty on success.
func (m *Metrics) ObserveFetch(venue string, latency time.Duration, reason string) {
	if m == nil {
		return
	}
	m.FetchLatency.WithLabelValues(venue).Observe(latency.Seconds())
	if reason != "" {
		m.FetchFailures.WithLabelValues(venue, reason).Inc()
	}
}

// ObserveCycle records one completed iteration for symbol.
func (m *Metrics) ObserveCycle(symbol string, d time.Duration, dropped bool) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(symbol).Inc()
	m.CycleDuration.WithLabelValues(symbol).Observe(d.Seconds())
	if dropped {
		m.DroppedFrames.WithLabelValues(symbol).Inc()
	}
}

// SetSpread publishes the last spread seen for symbol.
func (m *Metrics) SetSpread(symbol string, pct float64) {
	if m == nil {
		return
	}
	m.Spread.WithLabelValues(symbol).Set(pct)
}

// Lag counts an iteration that overran its interval.
func (m *Metrics) Lag(symbol string) {
	if m == nil {
		return
	}
	m.LagTotal.WithLabelValues(symbol).Inc()
}

// PositionOpened records a Flat to InPosition transition.
func (m *Metrics) PositionOpened(symbol string) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(symbol, "open").Inc()
	m.OpenPositions.Inc()
}

// PositionClosed records an InPosition to Flat transition realizing pnl.
func (m *Metrics) PositionClosed(symbol string, pnl float64) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(symbol, "close").Inc()
	m.OpenPositions.Dec()
	m.RealizedPnL.Add(pnl)
}

// EventDropped counts a side-channel event lost to a full queue.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}
