package legacysync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	appliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legacy_sync_applied_total",
		Help: "Mirror writes applied to the legacy chapter database.",
	}, []string{"record_type", "action"})

	// lookupMissTotal counts updates whose natural key matched no legacy
	// row. These complete as no-ops; the counter is the drift signal.
	lookupMissTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legacy_sync_lookup_miss_total",
		Help: "Legacy updates that matched no row by natural key.",
	}, []string{"record_type"})

	failureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legacy_sync_failure_total",
		Help: "Legacy store calls that failed.",
	}, []string{"record_type", "action"})
)
