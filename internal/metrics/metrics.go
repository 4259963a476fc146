package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты операций для меток.
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultPending = "pending"
)

var (
	EscrowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_operations_total",
		Help: "Operations on escrow holds by rail and result",
	}, []string{"operation", "rail", "result"})

	OfferTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_status_transitions_total",
		Help: "Offer status transitions",
	}, []string{"status"})

	SecondaryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_secondary_update_failures_total",
		Help: "Best-effort updates that failed and were skipped",
	}, []string{"target"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "escrow_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route", "status"})
)

// ObserveEscrow учитывает операцию с удержанием.
func ObserveEscrow(operation, rail string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	EscrowOperations.WithLabelValues(operation, rail, result).Inc()
}
