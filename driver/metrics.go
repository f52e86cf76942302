package driver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/crocme10/ctl2mimir/state"
)

// Metrics are the counters/histograms a driver.Run publishes per transition
// and per job dispatch — the control plane's analogue of the per-xaction
// stats aistore exposes for its extended actions.
var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctl2mimir",
		Name:      "fsm_transitions_total",
		Help:      "Number of FSM transitions published, by resulting state type.",
	}, []string{"state"})

	runsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ctl2mimir",
		Name:      "driver_runs_completed_total",
		Help:      "Number of driver runs that reached an absorbing state, by final state type.",
	}, []string{"final_state"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ctl2mimir",
		Name:      "dispatch_job_duration_seconds",
		Help:      "Duration of a dispatched job, by the state it ran from.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"from_state"})
)

func observeTransition(s state.State) {
	transitionsTotal.WithLabelValues(string(s.Type)).Inc()
}

func observeRunComplete(s state.State) {
	runsCompletedTotal.WithLabelValues(string(s.Type)).Inc()
}
