// Package metrics exposes the run counters as Prometheus collectors so
// a scrape during a long run can watch throughput and error mix live.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const subsystem = "sockload"

// Recorder implements stats.Recorder on top of Prometheus collectors.
type Recorder struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  prometheus.Histogram
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      "requests_total",
				Help:      "Requests issued, partitioned by payload size and status code.",
			},
			[]string{"size", "status"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      "errors_total",
				Help:      "Failed requests, partitioned by payload size and error kind.",
			},
			[]string{"size", "kind"},
		),
		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      "request_latency_ms",
				Help:      "Latency of successful requests in milliseconds.",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
	}
	reg.MustRegister(r.requests, r.errors, r.latency)
	return r
}

func (r *Recorder) RecordSuccess(size, status int, latency time.Duration) {
	r.requests.WithLabelValues(strconv.Itoa(size), strconv.Itoa(status)).Inc()
	r.latency.Observe(float64(latency.Milliseconds()))
}

func (r *Recorder) RecordError(size int, kind string) {
	r.errors.WithLabelValues(strconv.Itoa(size), kind).Inc()
}

// Serve starts the /metrics endpoint in the background and returns the
// server so the caller can shut it down.
func Serve(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Warn("metrics endpoint failed")
		}
	}()
	return srv
}
