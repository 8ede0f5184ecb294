// Package metrics provides Prometheus metrics for the reading store and the
// dashboard poller.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weather_monitor"

// NewRegistry returns a registry with the Go and process collectors
// registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an HTTP handler exposing the registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StoreMetrics instruments the reading store. A nil *StoreMetrics is valid
// and records nothing.
type StoreMetrics struct {
	AppendsTotal      *prometheus.CounterVec
	ReadsTotal        *prometheus.CounterVec
	LogEntries        prometheus.Gauge
	CorruptRecoveries prometheus.Counter
	BackendDuration   *prometheus.HistogramVec
}

// NewStoreMetrics creates and registers store metrics.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		AppendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "appends_total",
				Help:      "Total number of append operations",
			},
			[]string{"result"}, // ok, malformed, unavailable
		),
		ReadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "reads_total",
				Help:      "Total number of read-all operations",
			},
			[]string{"result"},
		),
		LogEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "log_entries",
				Help:      "Number of readings currently retained",
			},
		),
		CorruptRecoveries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "corrupt_recoveries_total",
				Help:      "Times an unparseable persisted log was treated as empty",
			},
		),
		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "backend_duration_seconds",
				Help:      "Duration of backend load and save calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"}, // load, save
		),
	}

	reg.MustRegister(
		m.AppendsTotal,
		m.ReadsTotal,
		m.LogEntries,
		m.CorruptRecoveries,
		m.BackendDuration,
	)

	return m
}

func (m *StoreMetrics) Append(result string) {
	if m == nil {
		return
	}
	m.AppendsTotal.WithLabelValues(result).Inc()
}

func (m *StoreMetrics) Read(result string) {
	if m == nil {
		return
	}
	m.ReadsTotal.WithLabelValues(result).Inc()
}

func (m *StoreMetrics) Entries(n int) {
	if m == nil {
		return
	}
	m.LogEntries.Set(float64(n))
}

func (m *StoreMetrics) Corrupt() {
	if m == nil {
		return
	}
	m.CorruptRecoveries.Inc()
}

// ObserveBackend records the duration of a backend call started at start.
func (m *StoreMetrics) ObserveBackend(op string, start time.Time) {
	if m == nil {
		return
	}
	m.BackendDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// PollerMetrics instruments the dashboard poller. A nil *PollerMetrics is
// valid and records nothing.
type PollerMetrics struct {
	PollsTotal  *prometheus.CounterVec
	LastSuccess prometheus.Gauge
	Readings    prometheus.Gauge
}

// NewPollerMetrics creates and registers poller metrics.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	m := &PollerMetrics{
		PollsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dashboard",
				Name:      "polls_total",
				Help:      "Total number of dashboard polls",
			},
			[]string{"source", "result"}, // source: readings, forecast
		),
		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "dashboard",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful readings poll",
			},
		),
		Readings: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "dashboard",
				Name:      "cached_readings",
				Help:      "Number of readings in the dashboard cache",
			},
		),
	}

	reg.MustRegister(m.PollsTotal, m.LastSuccess, m.Readings)

	return m
}

func (m *PollerMetrics) Poll(source, result string) {
	if m == nil {
		return
	}
	m.PollsTotal.WithLabelValues(source, result).Inc()
}

func (m *PollerMetrics) Success(at time.Time, cached int) {
	if m == nil {
		return
	}
	m.LastSuccess.Set(float64(at.Unix()))
	m.Readings.Set(float64(cached))
}
