// Package metrics exposes the application counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

const namespace = "roundbet"

// Prometheus implementa ports.Metrics sobre un registry propio.
type Prometheus struct {
	registry *prometheus.Registry

	resyncs        *prometheus.CounterVec
	resyncDuration prometheus.Histogram
	lastResync     prometheus.Gauge
	priceTicks     *prometheus.CounterVec
	submissions    *prometheus.CounterVec
}

// New registers all collectors on a fresh registry, plus the Go runtime ones.
func New() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		resyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resyncs_total",
			Help:      "Full state resyncs by result.",
		}, []string{"result"}),
		resyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resync_duration_seconds",
			Help:      "Time spent reading state, rounds and expired rounds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		lastResync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_resync_timestamp_seconds",
			Help:      "Unix time of the last successful resync.",
		}),
		priceTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_ticks_total",
			Help:      "Price feed ticks by outcome.",
		}, []string{"outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submitted instructions by kind and final status.",
		}, []string{"kind", "status"}),
	}
	reg.MustRegister(
		p.resyncs,
		p.resyncDuration,
		p.lastResync,
		p.priceTicks,
		p.submissions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// ObserveResync records one resync attempt.
func (p *Prometheus) ObserveResync(d time.Duration, err error) {
	if err != nil {
		p.resyncs.WithLabelValues("error").Inc()
		return
	}
	p.resyncs.WithLabelValues("ok").Inc()
	p.resyncDuration.Observe(d.Seconds())
	p.lastResync.SetToCurrentTime()
}

// ObservePriceTick records whether a tick was emitted or dropped.
func (p *Prometheus) ObservePriceTick(emitted bool) {
	outcome := "dropped"
	if emitted {
		outcome = "emitted"
	}
	p.priceTicks.WithLabelValues(outcome).Inc()
}

// ObserveSubmission records the final status of a submitted instruction.
func (p *Prometheus) ObserveSubmission(kind domain.TxKind, status domain.TxStatus) {
	p.submissions.WithLabelValues(string(kind), string(status)).Inc()
}

// Handler serves the registry for scraping.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}
