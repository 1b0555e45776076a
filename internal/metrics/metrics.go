// Package metrics exposes Prometheus collectors for the RPC layer and the
// settlement recompute loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "splitledger"

// Metrics holds all collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequests      *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
	recomputes       *prometheus.CounterVec
	recomputeSeconds prometheus.Histogram
	netBalance       *prometheus.GaugeVec
	pendingTransfers prometheus.Gauge
	activeExpenses   prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recompute_total",
			Help:      "Settlement recomputations by result.",
		}, []string{"result"}),
		recomputeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Time to rebuild balances and transfers from a snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		netBalance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "member_net_balance",
			Help:      "Current net balance per member (positive = owed money).",
		}, []string{"member"}),
		pendingTransfers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_transfers",
			Help:      "Number of transfers needed to settle all balances.",
		}),
		activeExpenses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_expenses",
			Help:      "Number of expenses taking part in the balance calculation.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rpcRequests,
		m.rpcDuration,
		m.recomputes,
		m.recomputeSeconds,
		m.netBalance,
		m.pendingTransfers,
		m.activeExpenses,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(d.Seconds())
}

// RecomputeFailed counts a snapshot that could not be turned into a report.
func (m *Metrics) RecomputeFailed(d time.Duration) {
	m.recomputes.WithLabelValues("error").Inc()
	m.recomputeSeconds.Observe(d.Seconds())
}

// RecomputeSucceeded records a new report.
func (m *Metrics) RecomputeSucceeded(d time.Duration, net map[string]float64, transfers, expenses int) {
	m.recomputes.WithLabelValues("ok").Inc()
	m.recomputeSeconds.Observe(d.Seconds())
	for member, balance := range net {
		m.netBalance.WithLabelValues(member).Set(balance)
	}
	m.pendingTransfers.Set(float64(transfers))
	m.activeExpenses.Set(float64(expenses))
}
