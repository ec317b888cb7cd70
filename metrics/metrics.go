package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts catalog mutations and auth events.
type Metrics struct {
	// Book mutations by operation and whether the id existed
	BookOperations *prometheus.CounterVec

	// Register/login/logout outcomes by failure code
	AuthEvents *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the catalog metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		BookOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_book_operations_total",
			Help: "Total book create/update/delete calls by result",
		}, []string{"op", "result"}), // result: "ok", "missing"

		AuthEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_auth_events_total",
			Help: "Total register/login/logout calls by result",
		}, []string{"event", "result"}),

		gatherer: reg,
	}
}

// BookOperation records a book mutation.
func (m *Metrics) BookOperation(op string, found bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !found {
		result = "missing"
	}
	m.BookOperations.WithLabelValues(op, result).Inc()
}

// AuthEvent records an auth outcome.
func (m *Metrics) AuthEvent(event, result string) {
	if m != nil {
		m.AuthEvents.WithLabelValues(event, result).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
