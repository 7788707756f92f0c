package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stocksim"

type Metrics struct {
	trades       *prometheus.CounterVec
	quoteLookups *prometheus.HistogramVec
	requests     *prometheus.CounterVec
	gatherer     prometheus.Gatherer
}

// New registers collectors on reg; pass prometheus.NewRegistry() in tests to avoid collisions.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		trades: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Buy and sell attempts by outcome.",
		}, []string{"side", "outcome"}),
		quoteLookups: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_lookup_duration_seconds",
			Help:      "Latency of price lookups.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"outcome"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}
}

func (m *Metrics) ObserveTrade(side, outcome string) {
	m.trades.WithLabelValues(side, outcome).Inc()
}

func (m *Metrics) ObserveLookup(outcome string, elapsed time.Duration) {
	m.quoteLookups.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRequest(method, route string, status int) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
