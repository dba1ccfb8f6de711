package rzd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "seatwatch",
		Subsystem: "provider",
		Name:      "requests_total",
		Help:      "Provider calls by endpoint and result.",
	}, []string{"endpoint", "result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "seatwatch",
		Subsystem: "provider",
		Name:      "request_duration_seconds",
		Help:      "Provider call latency by endpoint.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})
)

func observe(endpoint string, err error, took time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	requestsTotal.WithLabelValues(endpoint, result).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}
