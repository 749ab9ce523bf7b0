// Package metrics provides observability for the audit vault.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks chain growth and durability failures. AppendFailures is the
// alerting signal: a failed append means a read was denied for lack of an
// audit trail.
type Metrics struct {
	RecordsAppended prometheus.Counter
	AppendFailures  prometheus.Counter
	MirrorFailures  prometheus.Counter
}

// New registers all vault metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		RecordsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unigraph_audit_records_appended_total",
			Help: "Total audit records sealed into the chain",
		}),
		AppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unigraph_audit_append_failures_total",
			Help: "Audit appends that failed at the store, each one a denied read",
		}),
		MirrorFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "unigraph_audit_mirror_failures_total",
			Help: "Best-effort Kafka mirror publishes that failed",
		}),
	}
}
