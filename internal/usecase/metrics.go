package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mirrorWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_mirror_write_failures_total",
		Help: "Mirror writes that failed and were dropped.",
	}, []string{"key"})

	checkoutOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"mode", "outcome"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_active_sessions",
		Help: "Sessions currently held in memory.",
	})
)
