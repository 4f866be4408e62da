package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the checkout page controllers.
type Metrics struct {
	// Wallet sync metrics
	SyncNotificationsTotal *prometheus.CounterVec
	SyncCyclesTotal        *prometheus.CounterVec
	SyncCoalescedTotal     *prometheus.CounterVec
	SyncCycleDuration      *prometheus.HistogramVec
	WidgetMountsTotal      *prometheus.CounterVec
	WidgetUnmountsTotal    *prometheus.CounterVec

	// Reservation metrics
	ReservationsTotal *prometheus.CounterVec

	// Gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec
}

// New creates and registers all checkout metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		SyncNotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_wallet_notifications_total",
				Help: "State-changed notifications received by the wallet controller, by outcome",
			},
			[]string{"kind", "outcome"},
		),
		SyncCyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_wallet_cycles_total",
				Help: "Create-and-mount cycles, by result",
			},
			[]string{"kind", "result"},
		),
		SyncCoalescedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_wallet_coalesced_total",
				Help: "Notifications folded into a pending update while a creation was in flight",
			},
			[]string{"kind"},
		),
		SyncCycleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_wallet_cycle_duration_seconds",
				Help:    "Time from preference request to widget mount",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		),
		WidgetMountsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_widget_mounts_total",
				Help: "Widget mount attempts, by result",
			},
			[]string{"kind", "result"},
		),
		WidgetUnmountsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_widget_unmounts_total",
				Help: "Widget unmounts, by reason",
			},
			[]string{"kind", "reason"},
		),
		ReservationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_transfer_reservations_total",
				Help: "Manual transfer reservation attempts, by result",
			},
			[]string{"source", "result"},
		),
		GatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_gateway_requests_total",
				Help: "Requests sent to the checkout backend",
			},
			[]string{"endpoint", "status"},
		),
		GatewayRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_gateway_request_duration_seconds",
				Help:    "Latency of checkout backend requests",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"endpoint"},
		),
	}
}

// ObserveNotification records how the wallet controller handled one notification.
// Outcomes: not_ready, unchanged, coalesced, started.
func (m *Metrics) ObserveNotification(kind, outcome string) {
	if m == nil {
		return
	}
	m.SyncNotificationsTotal.WithLabelValues(kind, outcome).Inc()
	if outcome == "coalesced" {
		m.SyncCoalescedTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveCycle records a finished create-and-mount cycle.
func (m *Metrics) ObserveCycle(kind, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SyncCyclesTotal.WithLabelValues(kind, result).Inc()
	m.SyncCycleDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveMount records a widget mount attempt.
func (m *Metrics) ObserveMount(kind string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.WidgetMountsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveUnmount records a widget teardown. Reasons: replaced, not_ready, stale, closed.
func (m *Metrics) ObserveUnmount(kind, reason string) {
	if m == nil {
		return
	}
	m.WidgetUnmountsTotal.WithLabelValues(kind, reason).Inc()
}

// ObserveReservation records a transfer reservation attempt.
func (m *Metrics) ObserveReservation(source, result string) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues(source, result).Inc()
}

// ObserveGatewayRequest records one backend request. status is the HTTP status
// code as text, or "error" when no response arrived.
func (m *Metrics) ObserveGatewayRequest(endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.GatewayRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}
