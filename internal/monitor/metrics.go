package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seatwatch",
		Subsystem: "monitor",
		Name:      "cycles_total",
		Help:      "Monitoring cycles by result.",
	}, []string{"result"})

	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seatwatch",
		Subsystem: "monitor",
		Name:      "checks_total",
		Help:      "Subscription checks by outcome.",
	}, []string{"outcome"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "seatwatch",
		Subsystem: "monitor",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of a monitoring cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	activeSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "seatwatch",
		Subsystem: "monitor",
		Name:      "active_subscriptions",
		Help:      "Active subscriptions seen by the last cycle.",
	})
)
