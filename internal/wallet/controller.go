package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	cerrors "github.com/rifasite/checkout/internal/errors"
	"github.com/rifasite/checkout/internal/logger"
	"github.com/rifasite/checkout/internal/metrics"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("wallet: controller closed")

// Controller keeps the payment widget in sync with the page fields.
//
// At most one preference request is in flight. Notifications that arrive
// meanwhile collapse into a single replay that reads the latest fields once the
// attempt finishes, so the mounted widget always converges on the last state
// observed and never on an intermediate one.
type Controller struct {
	kind        string
	containerID string
	source      Source
	creator     Creator
	widget      Widget
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	onStatus    func(Status)
	baseCtx     context.Context

	mu         sync.Mutex
	state      State
	creating   bool
	pending    bool
	applied    string // last applied signature; valid only while hasApplied
	hasApplied bool
	handle     Handle
	epoch      uint64 // bumped whenever readiness drops; in-flight results from older epochs are stale
	closed     bool
	workers    sync.WaitGroup

	// Statuses are queued under mu in transition order and delivered by one
	// goroutine at a time, so the callback never sees them out of order.
	outbox   []Status
	flushing bool
}

// Option customizes the controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithStatusCallback registers a UI callback invoked on every state transition.
// Statuses arrive in transition order, one call at a time, possibly on a worker
// goroutine. The callback runs outside the controller's lock and may call
// NotifyChanged.
func WithStatusCallback(fn func(Status)) Option {
	return func(c *Controller) {
		c.onStatus = fn
	}
}

// WithKind labels logs and metrics ("raffle", "donation").
func WithKind(kind string) Option {
	return func(c *Controller) {
		c.kind = kind
	}
}

// WithContext sets the parent context for backend calls and widget mounts.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		c.baseCtx = ctx
	}
}

// New creates a controller. Nothing happens until Start or NotifyChanged is called.
func New(containerID string, source Source, creator Creator, widget Widget, opts ...Option) *Controller {
	c := &Controller{
		kind:        "raffle",
		containerID: containerID,
		source:      source,
		creator:     creator,
		widget:      widget,
		logger:      zerolog.Nop(),
		baseCtx:     context.Background(),
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "wallet").Str("kind", c.kind).Logger()
	return c
}

// Start performs the initial evaluation on page load.
func (c *Controller) Start() error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	c.NotifyChanged()
	return nil
}

// NotifyChanged tells the controller the fields may have changed. It is cheap
// and idempotent, never blocks on the network, and never returns an error:
// failures reduce to "widget not mounted".
func (c *Controller) NotifyChanged() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	att, status := c.evaluateLocked()
	if att != nil {
		c.workers.Add(1)
	}
	c.queueLocked(status)
	c.mu.Unlock()

	c.flush()
	if att != nil {
		go c.run(att)
	}
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AppliedSignature returns the signature of the mounted widget, if any.
func (c *Controller) AppliedSignature() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied, c.hasApplied
}

// Wait blocks until no create-and-mount attempt is running.
func (c *Controller) Wait() {
	c.workers.Wait()
}

// Close stops accepting notifications, waits for the outstanding attempt and
// unmounts the widget.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = false
	c.mu.Unlock()

	c.workers.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasApplied = false
	c.applied = ""
	if c.handle == nil {
		return nil
	}
	err := c.unmountLocked("closed")
	c.state = StateIdle
	return err
}

// attempt is one create-and-mount request for a snapshot.
type attempt struct {
	id        string
	snapshot  Snapshot
	signature string
	epoch     uint64
}

// evaluateLocked runs the synchronous part of the algorithm and returns the
// attempt to start, if any. Caller holds c.mu.
func (c *Controller) evaluateLocked() (*attempt, *Status) {
	snap := c.source.Snapshot()

	if snap == nil || !snap.Ready() {
		c.hasApplied = false
		c.applied = ""
		c.pending = false
		c.epoch++
		if c.handle != nil {
			_ = c.unmountLocked("not_ready")
		}
		c.widget.Reset(c.containerID)
		c.metrics.ObserveNotification(c.kind, "not_ready")
		return nil, c.setStateLocked(StateNotReady, "", nil)
	}

	sig := snap.Signature()

	if !c.creating && c.handle != nil && c.hasApplied && c.applied == sig {
		c.metrics.ObserveNotification(c.kind, "unchanged")
		return nil, nil
	}

	if c.creating {
		c.pending = true
		c.metrics.ObserveNotification(c.kind, "coalesced")
		c.logger.Debug().Msg("wallet.update_coalesced")
		return nil, nil
	}

	c.creating = true
	c.pending = false
	if c.handle != nil {
		_ = c.unmountLocked("replaced")
		c.hasApplied = false
		c.applied = ""
	}
	c.metrics.ObserveNotification(c.kind, "started")

	att := &attempt{
		id:        uuid.NewString(),
		snapshot:  snap,
		signature: sig,
		epoch:     c.epoch,
	}
	return att, c.setStateLocked(StateCreating, sig, nil)
}

// run executes attempts until no newer state is pending. The replay is a loop,
// not recursion, so sustained rapid input cannot grow the stack.
func (c *Controller) run(att *attempt) {
	defer c.workers.Done()

	for att != nil {
		start := time.Now()
		handle, err := c.createAndMount(att)

		c.mu.Lock()
		c.queueLocked(c.finishLocked(att, handle, err, time.Since(start)))

		c.creating = false
		att = nil
		if c.pending && !c.closed {
			c.pending = false
			var st *Status
			att, st = c.evaluateLocked()
			c.queueLocked(st)
		}
		c.mu.Unlock()

		c.flush()
	}
}

// createAndMount performs the network and widget calls outside the lock.
func (c *Controller) createAndMount(att *attempt) (Handle, error) {
	log := c.logger.With().Str("cycle_id", att.id).Logger()
	ctx := logger.WithContext(logger.WithCycleID(c.baseCtx, att.id), log)

	req := att.snapshot.Request()
	log.Debug().
		Ints("chosen_numbers", req.ChosenNumbers).
		Int64("amount_clp", req.AmountCLP).
		Str("email", logger.RedactEmail(req.Buyer.Email)).
		Msg("wallet.creating_preference")

	prefID, err := c.creator.CreatePreference(ctx, req)
	if err != nil {
		log.Error().
			Err(err).
			Bool("retryable", cerrors.CodeOf(err).IsRetryable()).
			Msg("wallet.preference_failed")
		return nil, err
	}

	handle, err := c.mountSafely(ctx, prefID)
	c.metrics.ObserveMount(c.kind, err)
	if err != nil {
		log.Error().Err(err).Str("preference_id", logger.TruncateID(prefID)).Msg("wallet.mount_failed")
		return nil, cerrors.Wrap(cerrors.ErrCodeMountFailed, "payment widget could not be mounted", err)
	}

	log.Info().Str("preference_id", logger.TruncateID(prefID)).Msg("wallet.mounted")
	return handle, nil
}

// mountSafely converts an SDK panic into a mount failure.
func (c *Controller) mountSafely(ctx context.Context, prefID string) (h Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = fmt.Errorf("widget mount panicked: %v", r)
		}
	}()
	h, err = c.widget.Mount(ctx, c.containerID, prefID)
	if err == nil && h == nil {
		err = errors.New("widget mount returned no handle")
	}
	return h, err
}

// finishLocked adopts or discards the attempt's result. Caller holds c.mu.
func (c *Controller) finishLocked(att *attempt, handle Handle, err error, took time.Duration) *Status {
	if err != nil {
		c.metrics.ObserveCycle(c.kind, "failed", took)
		if c.state == StateCreating {
			return c.setStateLocked(StateIdle, "", err)
		}
		return nil
	}

	if att.epoch != c.epoch || c.closed {
		// Readiness dropped (or the page is closing) while the request was in
		// flight; the new widget belongs to fields that no longer apply.
		c.metrics.ObserveCycle(c.kind, "stale", took)
		if uerr := handle.Unmount(); uerr != nil {
			c.logger.Warn().Err(uerr).Str("cycle_id", att.id).Msg("wallet.unmount_failed")
		}
		c.metrics.ObserveUnmount(c.kind, "stale")
		return nil
	}

	c.handle = handle
	c.applied = att.signature
	c.hasApplied = true
	c.metrics.ObserveCycle(c.kind, "mounted", took)
	return c.setStateLocked(StateMounted, att.signature, nil)
}

// unmountLocked tears down the current handle. Unmount failures are logged and
// otherwise ignored; the handle is dropped either way.
func (c *Controller) unmountLocked(reason string) error {
	h := c.handle
	c.handle = nil
	c.metrics.ObserveUnmount(c.kind, reason)
	if err := h.Unmount(); err != nil {
		c.logger.Warn().Err(err).Str("reason", reason).Msg("wallet.unmount_failed")
		return cerrors.Wrap(cerrors.ErrCodeUnmountFailed, "payment widget could not be removed", err)
	}
	return nil
}

func (c *Controller) setStateLocked(s State, sig string, err error) *Status {
	if c.state == s && err == nil && s != StateCreating {
		return nil
	}
	c.state = s
	return &Status{State: s, Signature: sig, Err: err}
}

// queueLocked records a transition for delivery. Caller holds c.mu.
func (c *Controller) queueLocked(st *Status) {
	if st == nil || c.onStatus == nil {
		return
	}
	c.outbox = append(c.outbox, *st)
}

// flush delivers queued statuses outside the lock. If another goroutine is
// already delivering, it picks up whatever was queued here.
func (c *Controller) flush() {
	if c.onStatus == nil {
		return
	}
	c.mu.Lock()
	if c.flushing {
		c.mu.Unlock()
		return
	}
	c.flushing = true
	for len(c.outbox) > 0 {
		st := c.outbox[0]
		c.outbox = c.outbox[1:]
		c.mu.Unlock()
		c.onStatus(st)
		c.mu.Lock()
	}
	c.flushing = false
	c.mu.Unlock()
}
