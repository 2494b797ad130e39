package fsm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/m3rciful/leadbot/internal/leads/domain"
)

var transitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "leads_transitions_total",
		Help: "Lead actions applied by the state machine",
	},
	[]string{"effect", "outcome"},
)

func observe(effect Effect, err error) {
	outcome := "ok"
	if err != nil {
		outcome = domain.KindOf(err).String()
	}
	transitionsTotal.WithLabelValues(effect.String(), outcome).Inc()
}
