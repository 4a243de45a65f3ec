package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jsonpdb/internal/storage"
)

type Metrics struct {
	requests *prometheus.CounterVec
	registry *prometheus.Registry
}

// NewMetrics registers the request counter and a record gauge backed by
// store.Count on a private registry.
func NewMetrics(store storage.Store) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsonpdb",
			Name:      "requests_total",
			Help:      "Requests handled, by outcome state and HTTP status.",
		}, []string{"state", "code"}),
	}
	reg.MustRegister(m.requests)
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "jsonpdb",
		Name:      "records",
		Help:      "Records currently stored.",
	}, func() float64 {
		n, err := store.Count()
		if err != nil {
			return -1
		}
		return float64(n)
	}))
	return m
}

func (m *Metrics) observe(state State, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(state), strconv.Itoa(status)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
