package metrics

import (
	"Gin_postgres_redis_asset_lending/lending"
	"Gin_postgres_redis_asset_lending/models"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lending"

// Collector records lending counters in a Prometheus registry.
type Collector struct {
	transitions *prometheus.CounterVec
	barcodes    *prometheus.CounterVec
	archiveOps  *prometheus.CounterVec
	sweeps      prometheus.Counter
	expired     prometheus.Counter
	sweepFailed prometheus.Counter
}

var _ lending.Metrics = (*Collector)(nil)

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_transitions_total",
			Help:      "Loan status transitions, by source and target status.",
		}, []string{"from", "to"}),
		barcodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barcodes_generated_total",
			Help:      "Generated barcodes, by kind (asset or loan).",
		}, []string{"kind"}),
		archiveOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_operations_total",
			Help:      "Archive, restore, purge and note operations, by record kind and result.",
		}, []string{"kind", "op", "result"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_sweeps_total",
			Help:      "Completed reservation expiry sweeps.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_expired_total",
			Help:      "Reservations cancelled because their deadline passed.",
		}),
		sweepFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_sweep_failures_total",
			Help:      "Reservations the sweeper failed to cancel.",
		}),
	}
	reg.MustRegister(c.transitions, c.barcodes, c.archiveOps, c.sweeps, c.expired, c.sweepFailed)
	return c
}

func (c *Collector) LoanTransition(from, to models.LoanStatus) {
	f := string(from)
	if f == "" {
		f = "new"
	}
	c.transitions.WithLabelValues(f, string(to)).Inc()
}

func (c *Collector) BarcodeGenerated(kind string) {
	c.barcodes.WithLabelValues(kind).Inc()
}

func (c *Collector) ArchiveOperation(kind, op, result string) {
	c.archiveOps.WithLabelValues(kind, op, result).Inc()
}

func (c *Collector) SweepCompleted(cancelled, failed int) {
	c.sweeps.Inc()
	c.expired.Add(float64(cancelled))
	c.sweepFailed.Add(float64(failed))
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
