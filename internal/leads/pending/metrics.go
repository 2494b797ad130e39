package pending

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var expiredTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "leads_pending_expired_total",
	Help: "Pending interactions removed by the in-memory sweeper",
})
