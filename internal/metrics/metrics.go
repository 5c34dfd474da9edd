package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SupplierRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srisk_supplier_requests_total",
			Help: "Supplier API operations by outcome",
		},
		[]string{"op", "outcome"}, // update|create|get , ok|client_error|not_found|unavailable|internal
	)

	HistoryEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "srisk_history_events_total",
			Help: "Change events seen by the history projector by stage",
		},
		[]string{"stage"}, // consumed|stored|skipped|failed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		SupplierRequestsTotal,
		HistoryEventsTotal,
	)
}
