// Package metrics exposes trading loop metrics through Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "mtftrader"

// Recorder collects loop metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	signals       *prometheus.CounterVec
	executions    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	balance       prometheus.Gauge
	positionOpen  prometheus.Gauge
}

// New creates a recorder and registers its collectors plus the Go runtime collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Trading cycles by outcome",
			},
			[]string{"outcome"},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signals_total",
				Help:      "Signals generated by direction",
			},
			[]string{"signal"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Execution attempts by result and reason",
			},
			[]string{"result", "reason"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Cycle errors by kind",
			},
			[]string{"kind"},
		),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of trading cycles in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "balance",
			Help:      "Last observed quote balance",
		}),
		positionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_open",
			Help:      "1 when a position is open",
		}),
	}

	r.registry.MustRegister(
		r.cycles, r.signals, r.executions, r.errorsTotal,
		r.cycleDuration, r.balance, r.positionOpen,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) RecordCycle(outcome string, took time.Duration) {
	r.cycles.WithLabelValues(outcome).Inc()
	r.cycleDuration.Observe(took.Seconds())
}

func (r *Recorder) RecordSignal(signal string) {
	r.signals.WithLabelValues(signal).Inc()
}

func (r *Recorder) RecordExecution(result, reason string) {
	r.executions.WithLabelValues(result, reason).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) SetBalance(balance decimal.Decimal) {
	r.balance.Set(balance.InexactFloat64())
}

func (r *Recorder) SetPositionOpen(open bool) {
	if open {
		r.positionOpen.Set(1)
		return
	}
	r.positionOpen.Set(0)
}
