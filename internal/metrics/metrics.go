// Package metrics holds the Prometheus collectors for pipeline runs and the
// planning API. Each Recorder owns its registry so that one-shot runs can
// dump it to a node-exporter textfile and tests never collide on the
// default registerer.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "modelrun"

// Recorder is safe for concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	reg *prometheus.Registry

	runs      *prometheus.CounterVec
	steps     *prometheus.HistogramVec
	available *prometheus.GaugeVec
	ratio     *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInflight prometheus.Gauge
}

// New builds a Recorder. withRuntime adds the Go and process collectors,
// useful for the long-running server and noise for textfile dumps.
func New(withRuntime bool) *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome",
		}, []string{"outcome"}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Duration of pipeline steps in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		available: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gpu_available_mb",
			Help:      "Free GPU memory in MB at the last capacity check",
		}, []string{"gpu"}),
		ratio: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "utilization_ratio",
			Help:      "Last memory utilization ratio computed per model",
		}, []string{"model"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"path", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		httpInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		}),
	}
	r.reg.MustRegister(r.runs, r.steps, r.available, r.ratio, r.httpRequests, r.httpDuration, r.httpInflight)
	if withRuntime {
		r.reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return r
}

// Registry exposes the underlying registry (for promhttp).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) RunFinished(outcome string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveStep(step string, d time.Duration) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(step).Observe(d.Seconds())
}

func (r *Recorder) SetAvailable(gpu, mb int) {
	if r == nil {
		return
	}
	r.available.WithLabelValues(strconv.Itoa(gpu)).Set(float64(mb))
}

func (r *Recorder) SetRatio(model string, ratio float64) {
	if r == nil {
		return
	}
	r.ratio.WithLabelValues(model).Set(ratio)
}

// HTTPInflight marks a request in flight; call the returned func when it completes.
func (r *Recorder) HTTPInflight() func() {
	if r == nil {
		return func() {}
	}
	r.httpInflight.Inc()
	return r.httpInflight.Dec
}

// ObserveHTTP records one completed request. path should be a route pattern.
func (r *Recorder) ObserveHTTP(path, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	s := strconv.Itoa(status)
	r.httpRequests.WithLabelValues(path, method, s).Inc()
	r.httpDuration.WithLabelValues(path, method, s).Observe(d.Seconds())
}

// WriteTextfile atomically writes the registry in text exposition format,
// for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
