package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("metrics collector should not be nil")
	}
	if m.SyncNotificationsTotal == nil {
		t.Error("SyncNotificationsTotal should be initialized")
	}
	if m.SyncCyclesTotal == nil {
		t.Error("SyncCyclesTotal should be initialized")
	}
	if m.WidgetMountsTotal == nil {
		t.Error("WidgetMountsTotal should be initialized")
	}
	if m.GatewayRequestsTotal == nil {
		t.Error("GatewayRequestsTotal should be initialized")
	}
}

func TestObserveNotification_Coalesced(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveNotification("raffle", "coalesced")
	m.ObserveNotification("raffle", "coalesced")
	m.ObserveNotification("raffle", "started")

	if got := promtest.ToFloat64(m.SyncCoalescedTotal.WithLabelValues("raffle")); got != 2 {
		t.Errorf("expected 2 coalesced notifications, got %.0f", got)
	}
	if got := promtest.ToFloat64(m.SyncNotificationsTotal.WithLabelValues("raffle", "started")); got != 1 {
		t.Errorf("expected 1 started notification, got %.0f", got)
	}
}

func TestObserveCycleAndMount(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCycle("donation", "mounted", 200*time.Millisecond)
	m.ObserveMount("donation", nil)
	m.ObserveMount("donation", errors.New("sdk not loaded"))
	m.ObserveUnmount("donation", "replaced")

	if got := promtest.ToFloat64(m.SyncCyclesTotal.WithLabelValues("donation", "mounted")); got != 1 {
		t.Errorf("expected 1 mounted cycle, got %.0f", got)
	}
	if got := promtest.ToFloat64(m.WidgetMountsTotal.WithLabelValues("donation", "failure")); got != 1 {
		t.Errorf("expected 1 failed mount, got %.0f", got)
	}
	if got := promtest.ToFloat64(m.WidgetUnmountsTotal.WithLabelValues("donation", "replaced")); got != 1 {
		t.Errorf("expected 1 replaced unmount, got %.0f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveNotification("raffle", "started")
	m.ObserveCycle("raffle", "failed", time.Second)
	m.ObserveMount("raffle", nil)
	m.ObserveUnmount("raffle", "closed")
	m.ObserveReservation("transfer", "ok")
	m.ObserveGatewayRequest("preference", "200", time.Millisecond)
}
