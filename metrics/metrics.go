// Package metrics registra os contadores Prometheus do gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"order-gateway/order/application"
	"order-gateway/order/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	orders          *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New cria as métricas e registra em reg. Sem registry global, para que
// testes possam criar quantas instâncias quiserem.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_total",
				Help: "Order submissions by variant and outcome",
			},
			[]string{"variant", "outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notification dispatch attempts by channel and result",
			},
			[]string{"channel", "result"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method"},
		),
	}
	reg.MustRegister(m.orders, m.notifications, m.requestsTotal, m.requestDuration)
	return m
}

// Order conta o desfecho de uma submissão.
func (m *Metrics) Order(variant string, outcome domain.Outcome) {
	m.orders.WithLabelValues(variant, string(outcome)).Inc()
}

// Dispatched implementa application.DispatchObserver.
func (m *Metrics) Dispatched(ch application.Channel, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(string(ch), result).Inc()
}

// TrackedKeys expõe o tamanho de um limiter; fn é lido a cada scrape.
func (m *Metrics) TrackedKeys(limiter string, fn func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "ratelimit_tracked_keys",
			Help:        "Client identities currently tracked by the rate limiter",
			ConstLabels: prometheus.Labels{"limiter": limiter},
		},
		func() float64 { return float64(fn()) },
	))
}

func (m *Metrics) InFlight(fn func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently holding a concurrency slot",
		},
		func() float64 { return float64(fn()) },
	))
}

// Handler serve o registry no formato de exposição do Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument mede duração e status de cada requisição do handler.
func (m *Metrics) Instrument(name string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		m.requestDuration.WithLabelValues(name, r.Method).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(name, r.Method, strconv.Itoa(wrapped.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
