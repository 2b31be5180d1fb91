package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "togobus"

// Recorder owns a private registry; nothing is registered on the global default.
type Recorder struct {
	registry *prometheus.Registry

	flowTransitions *prometheus.CounterVec
	seatFallbacks   prometheus.Counter
	payments        *prometheus.CounterVec
	deletions       *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		flowTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "booking_flow_transitions_total",
				Help:      "Booking flow state transitions by target state.",
			},
			[]string{"state"},
		),
		seatFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "seat_map_fallbacks_total",
				Help:      "Seat maps derived from trip data because the occupied-seat lookup failed.",
			},
		),
		payments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Payment attempts by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		deletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_deletions_total",
				Help:      "Optimistic company deletions by outcome.",
			},
			[]string{"outcome"},
		),
		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Latency of calls to the booking backend.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
	}
	r.registry.MustRegister(r.flowTransitions, r.seatFallbacks, r.payments, r.deletions, r.upstreamLatency)
	return r
}

func (r *Recorder) FlowTransition(state string) {
	r.flowTransitions.WithLabelValues(state).Inc()
}

func (r *Recorder) SeatMapFallback() {
	r.seatFallbacks.Inc()
}

func (r *Recorder) PaymentOutcome(method, outcome string) {
	r.payments.WithLabelValues(method, outcome).Inc()
}

func (r *Recorder) DeletionOutcome(outcome string) {
	r.deletions.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveUpstream(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.upstreamLatency.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
