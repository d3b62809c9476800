package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the assistant's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	TasksStarted   prometheus.Counter
	TasksFinished  *prometheus.CounterVec
	ActiveTasks    prometheus.Gauge
	EquityTrials   prometheus.Histogram
	EquityStops    *prometheus.CounterVec
	AdviceOutcomes *prometheus.CounterVec
	AdviceAttempts prometheus.Histogram
	StreetDuration *prometheus.HistogramVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		TasksStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "poker_assistant_tasks_started_total",
			Help: "Total number of analysis tasks started",
		}),
		TasksFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poker_assistant_tasks_finished_total",
				Help: "Total number of analysis tasks finished, by outcome",
			},
			[]string{"outcome"},
		),
		ActiveTasks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "poker_assistant_active_tasks",
			Help: "Analysis tasks currently running",
		}),
		EquityTrials: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "poker_assistant_equity_trials",
			Help:    "Monte Carlo trials used per street",
			Buckets: []float64{400, 800, 1600, 3200, 6400, 12000, 16000, 32000},
		}),
		EquityStops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poker_assistant_equity_stops_total",
				Help: "Equity estimations by stop reason",
			},
			[]string{"reason"},
		),
		AdviceOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poker_assistant_advice_total",
				Help: "Advice produced, by source",
			},
			[]string{"source"},
		),
		AdviceAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "poker_assistant_advice_attempts",
			Help:    "Generator attempts per street",
			Buckets: []float64{0, 1, 2, 3, 5},
		}),
		StreetDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poker_assistant_street_duration_seconds",
				Help:    "Wall time to simulate and advise one street",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"street"},
		),
	}
}

// NewRegistry creates a private registry with the assistant's metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewMetrics(reg)
}

// HandlerFor returns the exposition handler for reg.
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.TasksStarted.Inc()
	m.ActiveTasks.Inc()
}

func (m *Metrics) TaskFinished(outcome string) {
	if m == nil {
		return
	}
	m.TasksFinished.WithLabelValues(outcome).Inc()
	m.ActiveTasks.Dec()
}

func (m *Metrics) ObserveEquity(trials int, stop string) {
	if m == nil {
		return
	}
	m.EquityTrials.Observe(float64(trials))
	m.EquityStops.WithLabelValues(stop).Inc()
}

func (m *Metrics) ObserveAdvice(source string, attempts int) {
	if m == nil {
		return
	}
	m.AdviceOutcomes.WithLabelValues(source).Inc()
	m.AdviceAttempts.Observe(float64(attempts))
}

func (m *Metrics) ObserveStreet(street string, d time.Duration) {
	if m == nil {
		return
	}
	m.StreetDuration.WithLabelValues(street).Observe(d.Seconds())
}
