package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "storefront"

// Mutation outcomes reported by the cart store.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeNoop       = "noop"
	OutcomeFailed     = "failed"
)

// CartMetrics tracks optimistic cart mutations and background resyncs.
type CartMetrics struct {
	mutations    *prometheus.CounterVec
	syncFailures prometheus.Counter
	emptyShapes  prometheus.Counter
}

func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation and outcome.",
	}, []string{"op", "outcome"})
	syncFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_silent_sync_failures_total",
		Help:      "Silent cart resyncs that failed and were swallowed.",
	})
	emptyShapes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_unrecognized_responses_total",
		Help:      "Cart responses that matched no known envelope and were replaced by an empty cart.",
	})
	reg.MustRegister(mutations, syncFailures, emptyShapes)
	return &CartMetrics{mutations: mutations, syncFailures: syncFailures, emptyShapes: emptyShapes}
}

func (c *CartMetrics) IncMutation(op, outcome string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op), normalizeLabel(outcome)).Inc()
}

func (c *CartMetrics) IncSyncFailure() {
	if c == nil || c.syncFailures == nil {
		return
	}
	c.syncFailures.Inc()
}

func (c *CartMetrics) IncUnrecognizedShape() {
	if c == nil || c.emptyShapes == nil {
		return
	}
	c.emptyShapes.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
