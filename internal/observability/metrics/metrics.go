package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics holds the HTTP surface and answer pipeline instruments on a
// private registry, keeping the /metrics output free of default collectors
// from other libraries.
type ServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal    *prometheus.CounterVec
	answerSources   *prometheus.HistogramVec
	answerDuration  *prometheus.HistogramVec
	degradedTotal   *prometheus.CounterVec
	noContextTotal  *prometheus.CounterVec
	indexDocuments  prometheus.Gauge
	indexReloads    *prometheus.CounterVec
}

func NewServerMetrics(service string) *ServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oba",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oba",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "oba",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oba",
			Subsystem: "pipeline",
			Name:      "answers_total",
			Help:      "Total generated answers by provider.",
		},
		[]string{"service", "provider"},
	)
	answerSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oba",
			Subsystem: "pipeline",
			Name:      "answer_sources",
			Help:      "Distribution of sources per answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "oba",
			Subsystem: "pipeline",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer generation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	degradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oba",
			Subsystem: "pipeline",
			Name:      "degraded_answers_total",
			Help:      "Total degraded answers by reason.",
		},
		[]string{"service", "reason"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oba",
			Subsystem: "pipeline",
			Name:      "no_context_total",
			Help:      "Total answers produced without any retrieved source.",
		},
		[]string{"service"},
	)
	indexDocuments := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "oba",
			Subsystem: "index",
			Name:      "documents",
			Help:      "Number of chunks in the serving index snapshot.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexReloads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "oba",
			Subsystem: "index",
			Name:      "reloads_total",
			Help:      "Total index snapshot reloads by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		answerSources,
		answerDuration,
		degradedTotal,
		noContextTotal,
		indexDocuments,
		indexReloads,
	)

	return &ServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		answersTotal:    answersTotal,
		answerSources:   answerSources,
		answerDuration:  answerDuration,
		degradedTotal:   degradedTotal,
		noContextTotal:  noContextTotal,
		indexDocuments:  indexDocuments,
		indexReloads:    indexReloads,
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordAnswer observes one completed pipeline invocation.
func (m *ServerMetrics) RecordAnswer(service, provider string, sourceCount int, degraded bool, reason string, duration time.Duration) {
	if provider == "" {
		provider = "unknown"
	}
	m.answersTotal.WithLabelValues(service, provider).Inc()
	m.answerSources.WithLabelValues(service).Observe(float64(sourceCount))
	m.answerDuration.WithLabelValues(service).Observe(duration.Seconds())

	if degraded {
		if reason == "" {
			reason = "unknown"
		}
		m.degradedTotal.WithLabelValues(service, reason).Inc()
	}
	if sourceCount == 0 {
		m.noContextTotal.WithLabelValues(service).Inc()
	}
}

func (m *ServerMetrics) SetIndexDocuments(count int) {
	m.indexDocuments.Set(float64(count))
}

func (m *ServerMetrics) RecordIndexReload(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.indexReloads.WithLabelValues(service, status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
