package crm

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// crmReqs counts directory calls by operation, entity and outcome.
	crmReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_requests_total",
			Help: "Total number of CRM directory calls.",
		},
		[]string{"op", "entity", "outcome"},
	)

	crmLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_request_duration_seconds",
			Help:    "Duration of CRM directory calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "entity"},
	)
)

func init() {
	prometheus.MustRegister(crmReqs, crmLat)
}

// outcome maps an error onto a bounded label value.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
