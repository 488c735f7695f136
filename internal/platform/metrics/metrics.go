// Package metrics は在庫・E-waste 系のカウンタを Prometheus 形式で公開する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ewis"

// Metrics は nil でも安全に呼べる（テストでは nil を渡す）。
type Metrics struct {
	registry *prometheus.Registry

	adjustments          *prometheus.CounterVec
	invariantViolations  *prometheus.CounterVec
	historyAppendFailure prometheus.Counter
	issuances            *prometheus.CounterVec
	ewasteRecords        *prometheus.CounterVec
	lowStockAssets       prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_adjustments_total",
			Help:      "Committed stock adjustments by reason.",
		}, []string{"reason"}),
		invariantViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_invariant_violations_total",
			Help:      "Rejected ledger mutations that would break a stock invariant.",
		}, []string{"source"}),
		historyAppendFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_history_append_failures_total",
			Help:      "Adjustments rolled back because the history entry could not be written.",
		}),
		issuances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issuance_requests_total",
			Help:      "Request review outcomes.",
		}, []string{"outcome"}),
		ewasteRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ewaste_records_total",
			Help:      "E-waste records created at issuance, by status.",
		}, []string{"status"}),
		lowStockAssets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory_low_stock_assets",
			Help:      "Ledgers whose available stock is at or below the minimum threshold (last scan).",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.adjustments,
		m.invariantViolations,
		m.historyAppendFailure,
		m.issuances,
		m.ewasteRecords,
		m.lowStockAssets,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) AdjustmentCommitted(reason string) {
	if m == nil {
		return
	}
	m.adjustments.WithLabelValues(reason).Inc()
}

// InvariantViolated: source は "adjustment" / "issue" / "return"
func (m *Metrics) InvariantViolated(source string) {
	if m == nil {
		return
	}
	m.invariantViolations.WithLabelValues(source).Inc()
}

func (m *Metrics) HistoryAppendFailed() {
	if m == nil {
		return
	}
	m.historyAppendFailure.Inc()
}

// RequestReviewed: outcome は "issued" / "rejected" / "failed"
func (m *Metrics) RequestReviewed(outcome string) {
	if m == nil {
		return
	}
	m.issuances.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EwasteRecorded(status string) {
	if m == nil {
		return
	}
	m.ewasteRecords.WithLabelValues(status).Inc()
}

func (m *Metrics) SetLowStockAssets(n int) {
	if m == nil {
		return
	}
	m.lowStockAssets.Set(float64(n))
}
