package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	cerrors "github.com/rifasite/checkout/internal/errors"
	"github.com/rifasite/checkout/internal/gateway"
	"github.com/rifasite/checkout/internal/logger"
	"github.com/rifasite/checkout/internal/metrics"
)

// fields is a mutable raffle-like form used as the controller's source.
type fields struct {
	mu      sync.Mutex
	numbers []int
	email   string
}

type snap struct {
	numbers []int
	email   string
}

func (s snap) Ready() bool {
	return len(s.numbers) > 0 && s.email != "" && containsAt(s.email)
}

func (s snap) Signature() string {
	return fmt.Sprintf("%v|%s", s.numbers, s.email)
}

func (s snap) Request() gateway.PreferenceRequest {
	return gateway.PreferenceRequest{
		Kind:          gateway.KindRaffle,
		ChosenNumbers: s.numbers,
		Buyer:         gateway.Buyer{Name: "Ana", Email: s.email},
	}
}

func containsAt(s string) bool {
	for _, r := range s {
		if r == '@' {
			return true
		}
	}
	return false
}

func (f *fields) set(numbers []int, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.numbers = append([]int(nil), numbers...)
	f.email = email
}

func (f *fields) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return snap{numbers: append([]int(nil), f.numbers...), email: f.email}
}

// fakeCreator records requests. When gate is set every call blocks until the gate is closed.
type fakeCreator struct {
	mu       sync.Mutex
	requests []gateway.PreferenceRequest
	err      error
	gate     chan struct{}
	started  chan struct{}
}

func (c *fakeCreator) CreatePreference(ctx context.Context, req gateway.PreferenceRequest) (string, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	n := len(c.requests)
	err := c.err
	gate := c.gate
	started := c.started
	c.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("pref-%d", n), nil
}

func (c *fakeCreator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *fakeCreator) last() gateway.PreferenceRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

type fakeWidget struct {
	mu         sync.Mutex
	live       int
	maxLive    int
	mounts     []string
	unmounts   int
	resets     int
	mountErr   error
	unmountErr error
	panicOn    bool
}

type fakeHandle struct {
	w      *fakeWidget
	prefID string
}

func (h *fakeHandle) Unmount() error {
	h.w.mu.Lock()
	defer h.w.mu.Unlock()
	h.w.live--
	h.w.unmounts++
	return h.w.unmountErr
}

func (w *fakeWidget) Mount(ctx context.Context, containerID, prefID string) (Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.panicOn {
		panic("sdk exploded")
	}
	if w.mountErr != nil {
		return nil, w.mountErr
	}
	w.live++
	if w.live > w.maxLive {
		w.maxLive = w.live
	}
	w.mounts = append(w.mounts, prefID)
	return &fakeHandle{w: w, prefID: prefID}, nil
}

func (w *fakeWidget) Reset(containerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resets++
}

func (w *fakeWidget) snapshot() (live, maxLive, mounts, unmounts, resets int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.live, w.maxLive, len(w.mounts), w.unmounts, w.resets
}

func newTestController(f *fields, creator *fakeCreator, widget Widget, opts ...Option) *Controller {
	return New("walletBrick_container", f, creator, widget, opts...)
}

func TestIdempotentNotifications(t *testing.T) {
	f := &fields{}
	f.set([]int{3, 7}, "ana@x.com")
	creator := &fakeCreator{}
	widget := &fakeWidget{}
	m := metrics.New(prometheus.NewRegistry())
	c := newTestController(f, creator, widget, WithMetrics(m))

	if err := c.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c.Wait()

	for i := 0; i < 10; i++ {
		c.NotifyChanged()
	}
	c.Wait()

	if got := creator.count(); got != 1 {
		t.Errorf("expected 1 create request, got %d", got)
	}
	if c.State() != StateMounted {
		t.Errorf("state = %q, want mounted", c.State())
	}
	if got := promtest.ToFloat64(m.SyncNotificationsTotal.WithLabelValues("raffle", "unchanged")); got != 10 {
		t.Errorf("expected 10 unchanged notifications, got %.0f", got)
	}
}

func TestBurstDuringFlight_LatestWins(t *testing.T) {
	f := &fields{}
	f.set([]int{1}, "ana@x.com")
	gate := make(chan struct{})
	creator := &fakeCreator{gate: gate, started: make(chan struct{}, 10)}
	widget := &fakeWidget{}
	c := newTestController(f, creator, widget)

	c.NotifyChanged()
	<-creator.started

	for i := 2; i <= 6; i++ {
		f.set([]int{1, i}, "ana@x.com")
		c.NotifyChanged()
	}
	if c.State() != StateCreating {
		t.Fatalf("state = %q, want creating", c.State())
	}
	if got := creator.count(); got != 1 {
		t.Fatalf("expected a single in-flight request, got %d", got)
	}

	close(gate)
	c.Wait()

	if got := creator.count(); got != 2 {
		t.Fatalf("expected exactly 2 requests, got %d", got)
	}
	last := creator.last()
	if len(last.ChosenNumbers) != 2 || last.ChosenNumbers[1] != 6 {
		t.Errorf("follow-up request used %v, want the last edit [1 6]", last.ChosenNumbers)
	}
	sig, ok := c.AppliedSignature()
	if !ok || sig != f.Snapshot().Signature() {
		t.Errorf("applied signature = %q (%v), want latest", sig, ok)
	}
	if _, maxLive, _, _, _ := widget.snapshot(); maxLive > 1 {
		t.Errorf("two widgets were live at once (max %d)", maxLive)
	}
}

func TestReadinessGating(t *testing.T) {
	tests := []struct {
		name    string
		numbers []int
		email   string
	}{
		{"empty selection", nil, "ana@x.com"},
		{"email without at", []int{3, 7}, "bad-email"},
		{"empty email", []int{3}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fields{}
			f.set(tt.numbers, tt.email)
			creator := &fakeCreator{}
			widget := &fakeWidget{}
			c := newTestController(f, creator, widget)

			c.Start()
			c.NotifyChanged()
			c.Wait()

			if got := creator.count(); got != 0 {
				t.Errorf("expected no create requests, got %d", got)
			}
			if c.State() != StateNotReady {
				t.Errorf("state = %q, want not_ready", c.State())
			}
			if _, _, mounts, _, resets := widget.snapshot(); mounts != 0 || resets == 0 {
				t.Errorf("mounts=%d resets=%d, want 0 mounts and a placeholder reset", mounts, resets)
			}
		})
	}
}

func TestReadinessLost_UnmountsAndClearsSignature(t *testing.T) {
	f := &fields{}
	f.set([]int{3}, "ana@x.com")
	creator := &fakeCreator{}
	widget := &fakeWidget{}
	c := newTestController(f, creator, widget)

	c.Start()
	c.Wait()

	f.set(nil, "ana@x.com")
	c.NotifyChanged()

	if _, ok := c.AppliedSignature(); ok {
		t.Error("applied signature should be cleared")
	}
	if live, _, _, unmounts, _ := widget.snapshot(); live != 0 || unmounts != 1 {
		t.Errorf("live=%d unmounts=%d, want widget unmounted", live, unmounts)
	}

	// Restoring the same fields must request again: the old signature was reset.
	f.set([]int{3}, "ana@x.com")
	c.NotifyChanged()
	c.Wait()
	if got := creator.count(); got != 2 {
		t.Errorf("expected 2 requests after readiness returned, got %d", got)
	}
}

func TestSignatureChange_OneNewCycle(t *testing.T) {
	f := &fields{}
	f.set([]int{3, 7}, "ana@x.com")
	creator := &fakeCreator{}
	widget := &fakeWidget{}
	c := newTestController(f, creator, widget)

	c.Start()
	c.Wait()

	f.set([]int{3, 7}, "ana@y.com")
	c.NotifyChanged()
	c.Wait()

	if got := creator.count(); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
	live, maxLive, mounts, unmounts, _ := widget.snapshot()
	if live != 1 || maxLive != 1 || mounts != 2 || unmounts != 1 {
		t.Errorf("live=%d max=%d mounts=%d unmounts=%d", live, maxLive, mounts, unmounts)
	}
}

func TestCreateFailure_LeavesWidgetUnmounted(t *testing.T) {
	f := &fields{}
	f.set([]int{3}, "ana@x.com")
	creator := &fakeCreator{err: cerrors.New(cerrors.ErrCodeTransportFailure, "network error")}
	widget := &fakeWidget{}

	var mu sync.Mutex
	var statuses []Status
	c := newTestController(f, creator, widget, WithStatusCallback(func(s Status) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	}))

	c.Start()
	c.Wait()

	if c.State() != StateIdle {
		t.Errorf("state = %q, want idle", c.State())
	}
	if _, ok := c.AppliedSignature(); ok {
		t.Error("signature must not be applied after a failure")
	}

	mu.Lock()
	lastStatus := statuses[len(statuses)-1]
	mu.Unlock()
	if cerrors.CodeOf(lastStatus.Err) != cerrors.ErrCodeTransportFailure {
		t.Errorf("last status err = %v, want transport failure", lastStatus.Err)
	}

	// The next input event is the retry.
	creator.mu.Lock()
	creator.err = nil
	creator.mu.Unlock()
	c.NotifyChanged()
	c.Wait()
	if c.State() != StateMounted {
		t.Errorf("state = %q, want mounted after retry", c.State())
	}
}

func TestMountFailure(t *testing.T) {
	tests := []struct {
		name   string
		widget *fakeWidget
	}{
		{"mount error", &fakeWidget{mountErr: errors.New("container missing")}},
		{"mount panic", &fakeWidget{panicOn: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fields{}
			f.set([]int{3}, "ana@x.com")
			creator := &fakeCreator{}
			c := newTestController(f, creator, tt.widget)

			c.Start()
			c.Wait()

			if c.State() != StateIdle {
				t.Errorf("state = %q, want idle", c.State())
			}
			if _, ok := c.AppliedSignature(); ok {
				t.Error("signature must not be applied after a mount failure")
			}
		})
	}
}

func TestReadinessLostDuringFlight_DiscardsResult(t *testing.T) {
	f := &fields{}
	f.set([]int{3}, "ana@x.com")
	gate := make(chan struct{})
	creator := &fakeCreator{gate: gate, started: make(chan struct{}, 1)}
	widget := &fakeWidget{}
	c := newTestController(f, creator, widget)

	c.NotifyChanged()
	<-creator.started

	f.set([]int{3}, "")
	c.NotifyChanged()

	close(gate)
	c.Wait()

	if c.State() != StateNotReady {
		t.Errorf("state = %q, want not_ready", c.State())
	}
	if live, _, mounts, _, _ := widget.snapshot(); live != 0 || mounts != 1 {
		t.Errorf("live=%d mounts=%d, stale widget should have been removed", live, mounts)
	}
	if _, ok := c.AppliedSignature(); ok {
		t.Error("stale result must not be applied")
	}
}

func TestUnmountFailureIsTolerated(t *testing.T) {
	f := &fields{}
	f.set([]int{3}, "ana@x.com")
	creator := &fakeCreator{}
	widget := &fakeWidget{unmountErr: errors.New("already detached")}
	c := newTestController(f, creator, widget)

	c.Start()
	c.Wait()

	f.set([]int{3, 4}, "ana@x.com")
	c.NotifyChanged()
	c.Wait()

	if c.State() != StateMounted {
		t.Errorf("state = %q, want mounted despite unmount failure", c.State())
	}
	if got := creator.count(); got != 2 {
		t.Errorf("expected 2 requests, got %d", got)
	}
}

func TestToggleOffOnDuringFlight_NoExtraRequest(t *testing.T) {
	f := &fields{}
	f.set([]int{3, 7}, "ana@x.com")
	gate := make(chan struct{})
	creator := &fakeCreator{gate: gate, started: make(chan struct{}, 1)}
	widget := &fakeWidget{}
	c := newTestController(f, creator, widget)

	c.NotifyChanged()
	<-creator.started

	f.set([]int{7}, "ana@x.com")
	c.NotifyChanged()
	f.set([]int{3, 7}, "ana@x.com")
	c.NotifyChanged()

	close(gate)
	c.Wait()

	if got := creator.count(); got != 1 {
		t.Errorf("expected 1 request, got %d", got)
	}
	if c.State() != StateMounted {
		t.Errorf("state = %q, want mounted", c.State())
	}
}

func TestClose(t *testing.T) {
	f := &fields{}
	f.set([]int{3}, "ana@x.com")
	creator := &fakeCreator{}
	widget := &fakeWidget{}
	c := newTestController(f, creator, widget)

	c.Start()
	c.Wait()

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if live, _, _, _, _ := widget.snapshot(); live != 0 {
		t.Errorf("widget still live after Close")
	}

	f.set([]int{3, 4}, "ana@x.com")
	c.NotifyChanged()
	c.Wait()
	if got := creator.count(); got != 1 {
		t.Errorf("closed controller issued a request (%d total)", got)
	}
	if err := c.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close = %v, want ErrClosed", err)
	}
}

// statusLog records delivered statuses; it blocks inside the callback on the
// first mounted status until release is closed.
type statusLog struct {
	mu      sync.Mutex
	states  []State
	blocked chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *statusLog) record(st Status) {
	l.mu.Lock()
	l.states = append(l.states, st.State)
	l.mu.Unlock()
	if st.State == StateMounted {
		l.once.Do(func() {
			close(l.blocked)
			<-l.release
		})
	}
}

func (l *statusLog) delivered() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func TestStatusCallback_DeliveredInTransitionOrder(t *testing.T) {
	f := &fields{}
	f.set([]int{3, 7}, "ana@x.com")
	creator := &fakeCreator{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	widget := &fakeWidget{}
	rec := &statusLog{blocked: make(chan struct{}), release: make(chan struct{})}
	c := newTestController(f, creator, widget, WithStatusCallback(rec.record))

	c.Start()
	<-creator.started
	close(creator.gate)
	<-rec.blocked

	// Fields become incomplete while the mounted status is still being delivered.
	f.set(nil, "ana@x.com")
	c.NotifyChanged()
	if c.State() != StateNotReady {
		t.Fatalf("State() = %s, want not_ready", c.State())
	}

	close(rec.release)
	c.Wait()

	got := rec.delivered()
	want := []State{StateCreating, StateMounted, StateNotReady}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("delivered = %v, want %v", got, want)
	}
	if last := got[len(got)-1]; last != c.State() {
		t.Errorf("last delivered status %s != controller state %s", last, c.State())
	}
	if live, _, _, _, _ := widget.snapshot(); live != 0 {
		t.Errorf("live widgets = %d, want 0", live)
	}
}

func TestStatusCallback_MayNotifyReentrantly(t *testing.T) {
	f := &fields{}
	f.set([]int{1}, "ana@x.com")
	creator := &fakeCreator{}
	widget := &fakeWidget{}

	var mu sync.Mutex
	var states []State
	var c *Controller
	c = newTestController(f, creator, widget, WithStatusCallback(func(st Status) {
		mu.Lock()
		states = append(states, st.State)
		mu.Unlock()
		if st.State == StateMounted {
			c.NotifyChanged()
		}
	}))

	c.Start()
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if fmt.Sprint(states) != fmt.Sprint([]State{StateCreating, StateMounted}) {
		t.Errorf("delivered = %v", states)
	}
	if creator.count() != 1 {
		t.Errorf("requests = %d, want 1", creator.count())
	}
}

// loggingWidget logs through the logger the controller puts in the mount context.
type loggingWidget struct {
	fakeWidget
	cycleIDs []string
}

func (w *loggingWidget) Mount(ctx context.Context, containerID, prefID string) (Handle, error) {
	lg := logger.FromContext(ctx)
	lg.Info().Msg("widget.mount")
	w.mu.Lock()
	w.cycleIDs = append(w.cycleIDs, logger.GetCycleID(ctx))
	w.mu.Unlock()
	return w.fakeWidget.Mount(ctx, containerID, prefID)
}

func TestMountContextCarriesCycleLogger(t *testing.T) {
	f := &fields{}
	f.set([]int{2}, "ana@x.com")
	var buf bytes.Buffer
	widget := &loggingWidget{}
	c := newTestController(f, &fakeCreator{}, widget, WithLogger(zerolog.New(&buf)))

	c.Start()
	c.Wait()

	if len(widget.cycleIDs) != 1 || widget.cycleIDs[0] == "" {
		t.Fatalf("cycle ids seen by widget = %v", widget.cycleIDs)
	}
	var mountLine string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `"widget.mount"`) {
			mountLine = line
		}
	}
	if !strings.Contains(mountLine, widget.cycleIDs[0]) {
		t.Errorf("widget log line %q does not carry cycle_id %s", mountLine, widget.cycleIDs[0])
	}
}
