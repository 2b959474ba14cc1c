package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "homecare"

// BackendMetrics exposes counters/histograms for RPC calls to the booking backend.
type BackendMetrics struct {
	rpcTotal   *prometheus.CounterVec
	rpcLatency *prometheus.HistogramVec
}

func NewBackendMetrics(reg prometheus.Registerer) *BackendMetrics {
	m := &BackendMetrics{
		rpcTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "rpc_total",
			Help:      "Total RPC calls to the booking backend",
		}, []string{"method", "outcome"}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "rpc_latency_seconds",
			Help:      "Latency of booking backend RPC calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.rpcTotal, m.rpcLatency)
	return m
}

func (m *BackendMetrics) ObserveCall(method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.rpcTotal.WithLabelValues(method, outcome).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(seconds)
}

// QueryMetrics tracks cache lookups and invalidations in the query layer.
type QueryMetrics struct {
	lookups       *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

func NewQueryMetrics(reg prometheus.Registerer) *QueryMetrics {
	m := &QueryMetrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "lookups_total",
			Help:      "Query cache lookups by family and result",
		}, []string{"family", "result"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "invalidations_total",
			Help:      "Query cache family invalidations",
		}, []string{"family"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.lookups, m.invalidations)
	return m
}

// ObserveLookup records a lookup; result is one of hit, miss or disabled.
func (m *QueryMetrics) ObserveLookup(family, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(family, result).Inc()
}

func (m *QueryMetrics) ObserveInvalidation(family string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(family).Inc()
}

// BookingMetrics counts booking form submissions by outcome.
type BookingMetrics struct {
	submissions *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking form submissions by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissions)
	return m
}

func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}
