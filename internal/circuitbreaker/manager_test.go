package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestManager_Disabled(t *testing.T) {
	m := NewManager(Config{Enabled: false})

	calls := 0
	for i := 0; i < 10; i++ {
		_, _ = m.Execute(ServicePreferenceAPI, func() (interface{}, error) {
			calls++
			return nil, errors.New("boom")
		})
	}

	if calls != 10 {
		t.Errorf("expected every call to pass through, got %d", calls)
	}
	if got := m.State(ServicePreferenceAPI); got != "disabled" {
		t.Errorf("State() = %q, want disabled", got)
	}
}

func TestManager_TripsAfterConsecutiveFailures(t *testing.T) {
	m := NewManager(Config{
		Enabled: true,
		PreferenceAPI: BreakerConfig{
			MaxRequests:         1,
			Timeout:             time.Minute,
			ConsecutiveFailures: 2,
		},
		ReservationAPI: BreakerConfig{
			MaxRequests:         1,
			Timeout:             time.Minute,
			ConsecutiveFailures: 2,
		},
		Logger: zerolog.Nop(),
	})

	fail := func() (interface{}, error) { return nil, errors.New("503") }
	_, _ = m.Execute(ServicePreferenceAPI, fail)
	_, _ = m.Execute(ServicePreferenceAPI, fail)

	_, err := m.Execute(ServicePreferenceAPI, func() (interface{}, error) {
		t.Fatal("call should not run while the breaker is open")
		return nil, nil
	})
	if !IsOpenError(err) {
		t.Fatalf("expected open-state error, got %v", err)
	}
	if got := m.State(ServicePreferenceAPI); got != "open" {
		t.Errorf("State() = %q, want open", got)
	}

	// Reservation breaker is isolated from preference failures.
	out, err := m.Execute(ServiceReservationAPI, func() (interface{}, error) { return "ok", nil })
	if err != nil || out != "ok" {
		t.Errorf("reservation call should pass, got %v, %v", out, err)
	}
}

func TestManager_NilIsPassThrough(t *testing.T) {
	var m *Manager
	out, err := m.Execute(ServiceReservationAPI, func() (interface{}, error) { return 1, nil })
	if err != nil || out != 1 {
		t.Errorf("nil manager should pass through, got %v, %v", out, err)
	}
}
