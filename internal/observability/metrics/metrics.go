package metrics

import "github.com/prometheus/client_golang/prometheus"

// AgentMetrics exposes counters/histograms for the booking agent.
type AgentMetrics struct {
	routesTotal    *prometheus.CounterVec
	bookingsTotal  *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
}

func NewAgentMetrics(reg prometheus.Registerer) *AgentMetrics {
	m := &AgentMetrics{
		routesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthsync",
			Subsystem: "agent",
			Name:      "routes_total",
			Help:      "Routed agent queries by action and tool",
		}, []string{"action", "tool"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthsync",
			Subsystem: "agent",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"outcome"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "healthsync",
			Subsystem: "agent",
			Name:      "route_fallbacks_total",
			Help:      "Unparseable or failed completions recovered by a default",
		}, []string{"stage"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "healthsync",
			Subsystem: "agent",
			Name:      "llm_latency_seconds",
			Help:      "Latency of language model round trips",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.routesTotal, m.bookingsTotal, m.fallbacksTotal, m.llmLatency)
	return m
}

func (m *AgentMetrics) ObserveRoute(action, tool string) {
	if m == nil {
		return
	}
	if tool == "" {
		tool = "none"
	}
	m.routesTotal.WithLabelValues(action, tool).Inc()
}

func (m *AgentMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *AgentMetrics) ObserveFallback(stage string) {
	if m == nil {
		return
	}
	m.fallbacksTotal.WithLabelValues(stage).Inc()
}

func (m *AgentMetrics) ObserveLLMLatency(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(stage).Observe(seconds)
}
