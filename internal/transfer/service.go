// Package transfer implements the "reserve by bank transfer" flow: the
// selected numbers are held server-side for a fixed window while the buyer
// pays manually.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	cerrors "github.com/rifasite/checkout/internal/errors"
	"github.com/rifasite/checkout/internal/gateway"
	"github.com/rifasite/checkout/internal/logger"
	"github.com/rifasite/checkout/internal/metrics"
	"github.com/rifasite/checkout/internal/selection"
)

const (
	DefaultMaxNumbers    = 50
	DefaultHoldDuration  = 12 * time.Hour
	DefaultRedirectDelay = 2500 * time.Millisecond
)

// ErrReservationInFlight is returned when a reservation is requested while
// another one from the same page is still outstanding.
var ErrReservationInFlight = errors.New("transfer: reservation already in progress")

// Reserver is the backend side of the flow. *gateway.Client implements it.
type Reserver interface {
	CreateReservation(ctx context.Context, req gateway.ReservationRequest) (*gateway.Reservation, error)
	ReserveFromFailedPayment(ctx context.Context, externalReference string) (*gateway.Reservation, error)
}

// Selection is the part of the selection controller the flow needs.
type Selection interface {
	Current() selection.Snapshot
	Clear()
	RecomputeSummary() selection.Summary
}

// GridRefresher reloads the number grid so newly held numbers show as taken.
type GridRefresher interface {
	Refresh()
}

// Navigator sends the browser to another page.
type Navigator interface {
	Navigate(url string)
}

// Confirmation is shown to the buyer after a successful hold.
type Confirmation struct {
	Count         int
	Numbers       []int
	ReservedUntil time.Time
	RedirectURL   string
	PaymentID     int64
	Message       string
}

// Service runs transfer reservations for one page.
type Service struct {
	reserver      Reserver
	selection     Selection
	grid          GridRefresher
	navigator     Navigator
	maxNumbers    int
	hold          time.Duration
	redirectDelay time.Duration
	logger        zerolog.Logger
	metrics       *metrics.Metrics

	inFlight atomic.Bool

	mu     sync.Mutex
	timers []*time.Timer
	closed bool
}

// Option customizes the service.
type Option func(*Service)

func WithMaxNumbers(n int) Option {
	return func(s *Service) {
		s.maxNumbers = n
	}
}

// WithHoldDuration sets the hold window used in the confirmation text.
func WithHoldDuration(d time.Duration) Option {
	return func(s *Service) {
		s.hold = d
	}
}

func WithRedirectDelay(d time.Duration) Option {
	return func(s *Service) {
		s.redirectDelay = d
	}
}

func WithGridRefresher(g GridRefresher) Option {
	return func(s *Service) {
		s.grid = g
	}
}

func WithNavigator(n Navigator) Option {
	return func(s *Service) {
		s.navigator = n
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a transfer reservation service.
func NewService(reserver Reserver, sel Selection, opts ...Option) *Service {
	s := &Service{
		reserver:      reserver,
		selection:     sel,
		maxNumbers:    DefaultMaxNumbers,
		hold:          DefaultHoldDuration,
		redirectDelay: DefaultRedirectDelay,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("component", "transfer").Logger()
	return s
}

// Validate checks the current selection and buyer without touching the network.
// Checks run in the order the page shows them.
func (s *Service) Validate(snap selection.Snapshot) error {
	if len(snap.Numbers) == 0 {
		return newValidationError(cerrors.ErrCodeEmptySelection, "Debes seleccionar al menos un número.")
	}
	if err := snap.Buyer.Validate(); err != nil {
		var ce *cerrors.Error
		if errors.As(err, &ce) {
			return newValidationError(ce.Code, ce.Message)
		}
		return newValidationError(cerrors.ErrCodeValidationFailed, err.Error())
	}
	if s.maxNumbers > 0 && len(snap.Numbers) > s.maxNumbers {
		return newValidationError(cerrors.ErrCodeTooManyNumbers,
			fmt.Sprintf("No puedes reservar más de %d números por transferencia.", s.maxNumbers))
	}
	return nil
}

// ReserveByTransfer holds the selected numbers. On success the selection is
// cleared, the grid refreshed and, when the backend sent a redirect URL,
// navigation is scheduled after the redirect delay.
func (s *Service) ReserveByTransfer(ctx context.Context) (*Confirmation, error) {
	snap := s.selection.Current()
	if err := s.Validate(snap); err != nil {
		s.metrics.ObserveReservation("selection", "invalid")
		s.logger.Debug().Err(err).Msg("transfer.validation_failed")
		return nil, err
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrReservationInFlight
	}
	defer s.inFlight.Store(false)

	log := s.logger.With().
		Int("count", len(snap.Numbers)).
		Str("email", logger.RedactEmail(snap.Buyer.Email)).
		Logger()

	res, err := s.reserver.CreateReservation(ctx, gateway.ReservationRequest{
		ChosenNumbers: snap.Numbers,
		Buyer:         snap.Buyer.Gateway(),
	})
	if err != nil {
		s.metrics.ObserveReservation("selection", resultFor(err))
		log.Error().Err(err).Str("error_code", string(cerrors.CodeOf(err))).Msg("transfer.reserve_failed")
		return nil, err
	}

	s.selection.Clear()
	s.selection.RecomputeSummary()
	if s.grid != nil {
		s.grid.Refresh()
	}

	conf := s.confirmation(res, snap.Numbers)
	s.metrics.ObserveReservation("selection", "reserved")
	log.Info().Time("reserved_until", res.ReservedUntil).Msg("transfer.reserved")

	s.scheduleRedirect(res.RedirectURL)
	return conf, nil
}

// ReserveFromFailedPayment turns a failed card payment, identified by its
// external reference, into a transfer hold for the same numbers.
func (s *Service) ReserveFromFailedPayment(ctx context.Context, externalReference string) (*Confirmation, error) {
	if externalReference == "" {
		s.metrics.ObserveReservation("failed_payment", "invalid")
		return nil, newValidationError(cerrors.ErrCodeMissingReference, "Falta la referencia del pago.")
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrReservationInFlight
	}
	defer s.inFlight.Store(false)

	log := s.logger.With().Str("external_reference", logger.TruncateID(externalReference)).Logger()

	res, err := s.reserver.ReserveFromFailedPayment(ctx, externalReference)
	if err != nil {
		s.metrics.ObserveReservation("failed_payment", resultFor(err))
		log.Error().Err(err).Str("error_code", string(cerrors.CodeOf(err))).Msg("transfer.reserve_failed")
		return nil, err
	}

	s.metrics.ObserveReservation("failed_payment", "reserved")
	log.Info().Int64("payment_id", res.PaymentID).Int("count", res.Count).Msg("transfer.reserved")

	conf := s.confirmation(res, res.ChosenNumbers)
	s.scheduleRedirect(res.RedirectURL)
	return conf, nil
}

// Close cancels pending redirects. Reservations already made are unaffected.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	return nil
}

func (s *Service) confirmation(res *gateway.Reservation, numbers []int) *Confirmation {
	count := res.Count
	if count == 0 {
		count = len(numbers)
	}
	return &Confirmation{
		Count:         count,
		Numbers:       numbers,
		ReservedUntil: res.ReservedUntil,
		RedirectURL:   res.RedirectURL,
		PaymentID:     res.PaymentID,
		Message:       HoldMessage(count, s.hold),
	}
}

func (s *Service) scheduleRedirect(url string) {
	if url == "" || s.navigator == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	nav := s.navigator
	s.timers = append(s.timers, time.AfterFunc(s.redirectDelay, func() {
		nav.Navigate(url)
	}))
}

// HoldMessage is the confirmation text for count numbers held for hold.
func HoldMessage(count int, hold time.Duration) string {
	noun := "números"
	if count == 1 {
		noun = "número"
	}
	return fmt.Sprintf("Reservamos %d %s por %s. Completa la transferencia dentro de ese plazo.", count, noun, holdText(hold))
}

func holdText(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hora"
		}
		return fmt.Sprintf("%d horas", h)
	}
	m := int(d / time.Minute)
	if m == 1 {
		return "1 minuto"
	}
	return fmt.Sprintf("%d minutos", m)
}

func resultFor(err error) string {
	switch cerrors.CodeOf(err) {
	case cerrors.ErrCodeNumbersUnavailable:
		return "conflict"
	case cerrors.ErrCodeRateLimited:
		return "rate_limited"
	case "":
		return "error"
	default:
		return "rejected"
	}
}
