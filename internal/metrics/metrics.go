// Package metrics exposes Prometheus collectors for the wagering core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the services report to.
type Metrics struct {
	registry *prometheus.Registry

	MarketsCreated  prometheus.Counter
	MarketsResolved prometheus.Counter
	StakesPlaced    prometheus.Counter
	StakeVolume     prometheus.Counter
	Claims          prometheus.Counter
	ClaimVolume     prometheus.Counter
	Cancellations   prometheus.Counter
	OperationErrors *prometheus.CounterVec
	OpenMarkets     prometheus.Gauge
}

// New creates a Metrics with its own registry, so tests can instantiate it
// without collector name collisions.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		MarketsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolbet_markets_created_total",
			Help: "Markets opened.",
		}),
		MarketsResolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolbet_markets_resolved_total",
			Help: "Markets resolved.",
		}),
		StakesPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolbet_stakes_placed_total",
			Help: "Stake placements accepted.",
		}),
		StakeVolume: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolbet_stake_volume_total",
			Help: "Total value staked, in base units.",
		}),
		Claims: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolbet_claims_total",
			Help: "Winning claims settled.",
		}),
		ClaimVolume: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolbet_claim_volume_total",
			Help: "Total winnings paid out, in base units.",
		}),
		Cancellations: factory.NewCounter(prometheus.CounterOpts{
			Name: "poolbet_cancellations_total",
			Help: "Stakes cancelled and refunded.",
		}),
		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poolbet_operation_errors_total",
			Help: "Failed state transitions by operation.",
		}, []string{"op"}),
		OpenMarkets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "poolbet_open_markets",
			Help: "Markets currently open for staking.",
		}),
	}
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
