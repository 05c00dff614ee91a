package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. Construct once
// per process; promauto registers against the default registry.
type Metrics struct {
	VaultsCreated         prometheus.Counter
	VaultsCompleted       prometheus.Counter
	VaultsCancelled       prometheus.Counter
	MilestonesValidated   prometheus.Counter
	CancellationsRejected prometheus.Counter
	IdempotencyReplays    prometheus.Counter
	IdempotencyConflicts  prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		VaultsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_vaults_created_total",
			Help: "Total number of vaults created",
		}),
		VaultsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_vaults_completed_total",
			Help: "Total number of vaults that reached completed",
		}),
		VaultsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_vaults_cancelled_total",
			Help: "Total number of vaults cancelled",
		}),
		MilestonesValidated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_milestones_validated_total",
			Help: "Total number of milestone validations accepted",
		}),
		CancellationsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_cancellations_rejected_total",
			Help: "Total number of cancellation requests rejected as ineligible",
		}),
		IdempotencyReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_idempotency_replays_total",
			Help: "Total number of requests answered from the idempotency store",
		}),
		IdempotencyConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_idempotency_conflicts_total",
			Help: "Total number of idempotency key fingerprint conflicts",
		}),
	}
}

// nil-safe increment helpers so services can treat metrics as optional.

func (m *Metrics) IncVaultsCreated() {
	if m != nil {
		m.VaultsCreated.Inc()
	}
}

func (m *Metrics) IncVaultsCompleted() {
	if m != nil {
		m.VaultsCompleted.Inc()
	}
}

func (m *Metrics) IncVaultsCancelled() {
	if m != nil {
		m.VaultsCancelled.Inc()
	}
}

func (m *Metrics) IncMilestonesValidated() {
	if m != nil {
		m.MilestonesValidated.Inc()
	}
}

func (m *Metrics) IncCancellationsRejected() {
	if m != nil {
		m.CancellationsRejected.Inc()
	}
}

func (m *Metrics) IncIdempotencyReplays() {
	if m != nil {
		m.IdempotencyReplays.Inc()
	}
}

func (m *Metrics) IncIdempotencyConflicts() {
	if m != nil {
		m.IdempotencyConflicts.Inc()
	}
}
