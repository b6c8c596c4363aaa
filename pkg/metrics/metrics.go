// Package metrics exposes Prometheus instrumentation for analysis runs and
// the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the engine's Prometheus collectors. All methods are safe for
// concurrent use.
type Recorder struct {
	analysisRuns    *prometheus.CounterVec
	analysisLatency prometheus.Histogram
	varGauge        *prometheus.GaugeVec
	cvarGauge       *prometheus.GaugeVec
	apiRequests     *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
}

// NewRecorder creates a Recorder and registers its collectors. A nil
// registerer defaults to the global registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &Recorder{
		analysisRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskengine",
			Name:      "analysis_runs_total",
			Help:      "Completed analysis runs by status (ok, partial, error).",
		}, []string{"status"}),
		analysisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskengine",
			Name:      "analysis_duration_seconds",
			Help:      "Wall-clock duration of a full analysis run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		varGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "riskengine",
			Name:      "portfolio_var",
			Help:      "Latest portfolio VaR magnitude by calculation method.",
		}, []string{"method"}),
		cvarGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "riskengine",
			Name:      "portfolio_cvar",
			Help:      "Latest portfolio CVaR magnitude by calculation method.",
		}, []string{"method"}),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskengine",
			Name:      "api_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riskengine",
			Name:      "api_request_duration_seconds",
			Help:      "API request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(
		r.analysisRuns,
		r.analysisLatency,
		r.varGauge,
		r.cvarGauge,
		r.apiRequests,
		r.apiLatency,
	)
	return r
}

// AnalysisCompleted records one finished analysis run
func (r *Recorder) AnalysisCompleted(status string, elapsed time.Duration) {
	r.analysisRuns.WithLabelValues(status).Inc()
	r.analysisLatency.Observe(elapsed.Seconds())
}

// RiskFigures records the latest portfolio VaR and CVaR for a method
func (r *Recorder) RiskFigures(method string, varMagnitude, cvarMagnitude float64) {
	r.varGauge.WithLabelValues(method).Set(varMagnitude)
	r.cvarGauge.WithLabelValues(method).Set(cvarMagnitude)
}

// APIRequest records one handled API request
func (r *Recorder) APIRequest(route, status string, elapsed time.Duration) {
	r.apiRequests.WithLabelValues(route, status).Inc()
	r.apiLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}
