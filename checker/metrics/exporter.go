// Package metrics exposes the latest snapshot and run outcomes as Prometheus metrics
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/screwyprof/stakecheck/checker"
)

// DefaultPrefix is used when no metrics prefix is configured
const DefaultPrefix = "stakecheck"

// Run outcomes recorded in runs_total
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Exporter struct {
	registry *prometheus.Registry
	balance  *prometheus.GaugeVec
	rank     *prometheus.GaugeVec
	bonded   prometheus.Gauge
	runs     *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

// NewExporter registers the checker metrics on a dedicated registry
func NewExporter(prefix string) *Exporter {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	e := &Exporter{
		registry: prometheus.NewRegistry(),
		balance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_validator_delegated_balance",
			Help: "Delegated balance of the validator in display units",
		}, []string{"moniker", "address", "status"}),
		rank: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prefix + "_validator_rank",
			Help: "Rank of the validator among bonded validators",
		}, []string{"moniker", "address"}),
		bonded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_bonded_validators",
			Help: "Number of bonded validators in the latest snapshot",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_runs_total",
			Help: "Check runs by result",
		}, []string{"result"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_last_run_timestamp_seconds",
			Help: "Unix time the latest successful snapshot was executed at",
		}),
	}

	e.registry.MustRegister(e.balance, e.rank, e.bonded, e.runs, e.lastRun)

	return e
}

// Registry returns the registry holding the checker metrics
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves the registry in the Prometheus exposition format
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// Observe replaces the per-validator series with those of snapshot.
// Validators missing from the snapshot stop being exported.
func (e *Exporter) Observe(snapshot checker.Snapshot) {
	e.balance.Reset()
	e.rank.Reset()

	for _, r := range snapshot.Data {
		balance, _ := r.DelegatedBalance.Float64()
		e.balance.WithLabelValues(r.Moniker, r.Address, r.Status.String()).Set(balance)
		if r.Rank != nil {
			e.rank.WithLabelValues(r.Moniker, r.Address).Set(float64(*r.Rank))
		}
	}

	e.bonded.Set(float64(snapshot.Bonded()))
	e.lastRun.Set(float64(snapshot.ExecutedAt.UnixMicro()) / 1e6)
	e.runs.WithLabelValues(ResultSuccess).Inc()
}

// Failed counts a failed run
func (e *Exporter) Failed() {
	e.runs.WithLabelValues(ResultFailure).Inc()
}
