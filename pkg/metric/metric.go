// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all metrics for gridmine.
type Metrics struct {
	registry *prometheus.Registry

	// Claim metrics
	ClaimsCommitted *prometheus.CounterVec
	ClaimsRejected  *prometheus.CounterVec
	ClaimPrice      prometheus.Histogram
	SettledUnits    prometheus.Histogram

	// Standalone sale metrics
	PurchasesCommitted prometheus.Counter
	PurchasesRejected  *prometheus.CounterVec

	// Ledger metrics
	SlotsOwned prometheus.Gauge
}

// NewMetrics creates a new metrics instance with its own registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ClaimsCommitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridmine",
			Name:      "claims_committed_total",
			Help:      "Total number of committed slot claims",
		}, []string{"slot"}),
		ClaimsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridmine",
			Name:      "claims_rejected_total",
			Help:      "Total number of rejected slot claims by reason",
		}, []string{"reason"}),
		ClaimPrice: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridmine",
			Name:      "claim_price",
			Help:      "Settle price of committed claims",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 10, 8),
		}),
		SettledUnits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridmine",
			Name:      "claim_settled_units",
			Help:      "Unit rewards settled to the outgoing owner per claim",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 10),
		}),
		PurchasesCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridmine",
			Name:      "purchases_committed_total",
			Help:      "Total number of committed standalone sale purchases",
		}),
		PurchasesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridmine",
			Name:      "purchases_rejected_total",
			Help:      "Total number of rejected standalone sale purchases by reason",
		}, []string{"reason"}),
		SlotsOwned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridmine",
			Name:      "slots_owned",
			Help:      "Number of slots with an owner",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.ClaimsCommitted,
		m.ClaimsRejected,
		m.ClaimPrice,
		m.SettledUnits,
		m.PurchasesCommitted,
		m.PurchasesRejected,
		m.SlotsOwned,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// GetGatherer returns the prometheus gatherer for metrics export.
func (m *Metrics) GetGatherer() prometheus.Gatherer {
	if m.registry != nil {
		return m.registry
	}
	return prometheus.DefaultGatherer
}

// GetRegisterer returns the prometheus registerer.
func (m *Metrics) GetRegisterer() prometheus.Registerer {
	if m.registry != nil {
		return m.registry
	}
	return prometheus.DefaultRegisterer
}
