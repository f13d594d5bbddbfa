package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every ledger collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	transfersTotal      *prometheus.CounterVec
	transferErrorsTotal *prometheus.CounterVec
	invariantHolds      *prometheus.GaugeVec
	outboxPublished     *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers the ledger collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		transfersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transfers_total",
			Help: "Engine calls that returned a result, by operation and outcome",
		}, []string{"operation", "outcome"}),
		transferErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transfer_errors_total",
			Help: "Engine calls that failed, by operation and error kind",
		}, []string{"operation", "kind"}),
		invariantHolds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ledger_invariant_holds",
			Help: "1 when the currency's entries sum to zero at the last audit, 0 otherwise",
		}, []string{"currency"}),
		outboxPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_outbox_messages_total",
			Help: "Outbox messages handled by the poller, by final status",
		}, []string{"status"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "Request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"method", "endpoint"}),
	}
}

func (m *Metrics) ObserveTransfer(operation, outcome string) {
	if m == nil {
		return
	}
	m.transfersTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveTransferError(operation, kind string) {
	if m == nil {
		return
	}
	m.transferErrorsTotal.WithLabelValues(operation, kind).Inc()
}

func (m *Metrics) SetInvariantHolds(currency string, holds bool) {
	if m == nil {
		return
	}
	v := 0.0
	if holds {
		v = 1
	}
	m.invariantHolds.WithLabelValues(currency).Set(v)
}

func (m *Metrics) ObserveOutboxMessage(status string) {
	if m == nil {
		return
	}
	m.outboxPublished.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
