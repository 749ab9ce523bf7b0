// Package metrics provides observability for the assembler query layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks assembler traffic by tool and outcome. Outcomes mirror the
// audit trail digests (ok, not_found, ambiguous, permission_denied,
// audit_failed), so dashboard counts reconcile against the vault.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// New registers all assembler metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "unigraph_assemble_requests_total",
			Help: "Assembler requests by tool and outcome",
		}, []string{"tool", "outcome"}),
		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unigraph_assemble_duration_seconds",
			Help:    "Duration of assembler operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"tool"}),
	}
}
