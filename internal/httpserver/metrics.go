package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	reg *prometheus.Registry

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	uploads       *prometheus.CounterVec
	uploadedFiles prometheus.Counter
	uploadedBytes prometheus.Counter
}

// newMetrics registers on a private registry so several servers (tests) can
// coexist in one process.
func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &metrics{
		reg: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "freehost_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "freehost_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "freehost_uploads_total",
			Help: "Upload requests by result.",
		}, []string{"result"}),
		uploadedFiles: f.NewCounter(prometheus.CounterOpts{
			Name: "freehost_uploaded_files_total",
			Help: "Files published by successful uploads.",
		}),
		uploadedBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "freehost_uploaded_bytes_total",
			Help: "Bytes published by successful uploads.",
		}),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// instrument labels by route pattern rather than raw path to keep
// cardinality bounded.
func (m *metrics) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(sw.code())).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *metrics) uploadSucceeded(files int, bytes int64) {
	m.uploads.WithLabelValues("success").Inc()
	m.uploadedFiles.Add(float64(files))
	m.uploadedBytes.Add(float64(bytes))
}

func (m *metrics) uploadFailed(status int) {
	result := "error"
	switch status {
	case http.StatusBadRequest:
		result = "invalid"
	case http.StatusUnsupportedMediaType:
		result = "unsupported_media"
	case http.StatusRequestEntityTooLarge:
		result = "too_large"
	}
	m.uploads.WithLabelValues(result).Inc()
}
