// Package donation is the free-amount variant of the checkout page. It feeds
// the same wallet sync machine as the raffle selection.
package donation

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/rifasite/checkout/internal/buyer"
	"github.com/rifasite/checkout/internal/money"
	"github.com/rifasite/checkout/internal/wallet"
)

// DefaultMinAmount is the smallest accepted donation in CLP.
const DefaultMinAmount money.CLP = 1000

// Display is what the page shows next to the amount input.
type Display struct {
	Amount    money.CLP
	Formatted string // "$15.000" style, grouped for the page locale
	BelowMin  bool
	Ready     bool
}

// View renders the amount display.
type View interface {
	RenderAmount(Display)
}

// Notifier receives "state may have changed" notifications.
type Notifier interface {
	NotifyChanged()
}

type nopView struct{}

func (nopView) RenderAmount(Display) {}

// Form owns the donation amount and the buyer block.
type Form struct {
	minAmount money.CLP
	locale    language.Tag
	view      View
	logger    zerolog.Logger

	mu       sync.RWMutex
	amount   money.CLP
	buyer    buyer.Info
	notifier Notifier
}

// Option customizes the form.
type Option func(*Form)

func WithMinAmount(min money.CLP) Option {
	return func(f *Form) {
		f.minAmount = min
	}
}

func WithLocale(tag language.Tag) Option {
	return func(f *Form) {
		f.locale = tag
	}
}

func WithView(v View) Option {
	return func(f *Form) {
		f.view = v
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(f *Form) {
		f.logger = l
	}
}

// NewForm creates an empty donation form.
func NewForm(opts ...Option) *Form {
	f := &Form{
		minAmount: DefaultMinAmount,
		locale:    money.DefaultLocale,
		view:      nopView{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With().Str("component", "donation").Logger()
	return f
}

// SetNotifier registers the observer, normally the wallet controller.
func (f *Form) SetNotifier(n Notifier) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifier = n
}

// SetAmount parses raw amount input. Anything that is not a non-negative
// integer counts as zero.
func (f *Form) SetAmount(raw string) {
	amount := money.ParseAmount(raw)
	f.mu.Lock()
	f.amount = amount
	f.mu.Unlock()

	f.logger.Debug().Int64("amount_clp", amount.Int64()).Msg("donation.amount_changed")
	f.Refresh()
}

// SetBuyerField stores one buyer input.
func (f *Form) SetBuyerField(field buyer.Field, value string) {
	f.mu.Lock()
	f.buyer.Set(field, value)
	f.mu.Unlock()

	f.Refresh()
}

// Refresh re-renders the amount display and notifies the observer. The
// observer is always notified; readiness is its concern.
func (f *Form) Refresh() Display {
	snap := f.Current()
	f.mu.RLock()
	notifier := f.notifier
	f.mu.RUnlock()

	d := Display{
		Amount:    snap.Amount,
		Formatted: "$" + snap.Amount.Format(f.locale),
		BelowMin:  snap.Amount < snap.MinAmount,
		Ready:     snap.Ready(),
	}
	f.view.RenderAmount(d)

	if notifier != nil {
		notifier.NotifyChanged()
	}
	return d
}

// Snapshot implements wallet.Source.
func (f *Form) Snapshot() wallet.Snapshot {
	return f.Current()
}

// Current returns a copy of the form fields.
func (f *Form) Current() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return Snapshot{Amount: f.amount, MinAmount: f.minAmount, Buyer: f.buyer}
}
