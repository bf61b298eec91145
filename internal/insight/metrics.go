package insight

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels recorded per generator call.
const (
	OutcomeOK         = "ok"
	OutcomeNoData     = "no_data"
	OutcomeEmptyInput = "empty_input"
	OutcomeEmptyReply = "empty_reply"
	OutcomeFallback   = "fallback"
)

const (
	opAnalyze = "analyze"
	opRefine  = "refine"
)

func newOutcomeCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollbook",
		Subsystem: "insight",
		Name:      "calls_total",
		Help:      "Insight generator calls by operation and outcome.",
	}, []string{"op", "outcome"})
	if reg != nil {
		reg.MustRegister(c)
	}
	return c
}
