package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute - метка для запросов мимо маршрутов, чтобы произвольные
// пути не плодили серии
const unmatchedRoute = "unmatched"

// HTTPMetrics собирает метрики запросов Gin под пространством имён сервиса:
//
//	<service>_http_request_duration_seconds{method,route,code}
//	<service>_http_requests_inflight
//	<service>_http_request_errors_total{route,class}   class = 4xx | 5xx
//	<service>_http_response_bytes_total{route}
type HTTPMetrics struct {
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
	errors   *prometheus.CounterVec
	written  *prometheus.CounterVec
}

// NewPrometheusMiddleware создаёт метрики и регистрирует их в reg.
// nil reg - метрики считаются, но никуда не отдаются.
func NewPrometheusMiddleware(service string, reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.25, 1, 5},
		}, []string{"method", "route", "code"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Subsystem: "http",
			Name:      "requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Subsystem: "http",
			Name:      "request_errors_total",
			Help:      "Запросы, завершившиеся кодом 4xx или 5xx.",
		}, []string{"route", "class"}),
		written: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Subsystem: "http",
			Name:      "response_bytes_total",
			Help:      "Байты тел ответов.",
		}, []string{"route"}),
	}

	if reg != nil {
		reg.MustRegister(m.duration, m.inflight, m.errors, m.written)
	}
	return m
}

// Handler возвращает middleware для router.Use()
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		code := c.Writer.Status()

		m.duration.WithLabelValues(c.Request.Method, route, strconv.Itoa(code)).
			Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			m.written.WithLabelValues(route).Add(float64(size))
		}
		switch {
		case code >= 500:
			m.errors.WithLabelValues(route, "5xx").Inc()
		case code >= 400:
			m.errors.WithLabelValues(route, "4xx").Inc()
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics, отдающий метрики gatherer
func (m *HTTPMetrics) RegisterMetricsEndpoint(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
