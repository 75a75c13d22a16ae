package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundsync_fetch_total",
		Help: "Completed full loads by resulting status.",
	}, []string{"status"})

	fetchSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundsync_fetch_skipped_total",
		Help: "Fetch requests dropped by the reentrancy or recency guard.",
	}, []string{"reason"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fundsync_notifications_total",
		Help: "Change notifications received by kind.",
	}, []string{"kind"})

	debounceCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fundsync_debounce_coalesced_total",
		Help: "Debounced fetch requests replaced before firing.",
	})

	fundCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fundsync_funds",
		Help: "Funds currently held by the store.",
	})
)
