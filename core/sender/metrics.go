package sender

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sender_jobs_total",
			Help: "Outbound jobs finished by the sender, by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sender_queue_depth",
		Help: "Jobs waiting for a sender worker",
	})
)
