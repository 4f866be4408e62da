package selection

import (
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rifasite/checkout/internal/buyer"
	"github.com/rifasite/checkout/internal/money"
	"github.com/rifasite/checkout/internal/wallet"
)

// Summary is the derived view of the current selection.
type Summary struct {
	Numbers []int
	Count   int
	Total   money.CLP
	Ready   bool
}

// ListText renders the numbers for the summary line, or a dash when empty.
func (s Summary) ListText() string {
	if len(s.Numbers) == 0 {
		return "—"
	}
	parts := make([]string, len(s.Numbers))
	for i, n := range s.Numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// View renders summary output. Implemented by the DOM adapter.
type View interface {
	RenderSummary(Summary)
	SetTransferVisible(visible bool)
}

// Notifier receives "state may have changed" notifications.
type Notifier interface {
	NotifyChanged()
}

// Pager advances the number grid to its next page.
type Pager interface {
	Next()
}

type nopView struct{}

func (nopView) RenderSummary(Summary)   {}
func (nopView) SetTransferVisible(bool) {}

// Controller owns the selected numbers and the buyer form.
type Controller struct {
	unitPrice money.CLP
	view      View
	pager     Pager
	logger    zerolog.Logger

	mu       sync.RWMutex
	set      *Set
	buyer    buyer.Info
	notifier Notifier
}

// Option customizes the controller.
type Option func(*Controller)

// WithView sets the summary renderer.
func WithView(v View) Option {
	return func(c *Controller) {
		c.view = v
	}
}

// WithPager sets the grid pager used for auto-advance.
func WithPager(p Pager) Option {
	return func(c *Controller) {
		c.pager = p
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a selection controller for numbers priced at unitPrice.
func NewController(unitPrice money.CLP, opts ...Option) *Controller {
	c := &Controller{
		unitPrice: unitPrice,
		view:      nopView{},
		logger:    zerolog.Nop(),
		set:       NewSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "selection").Logger()
	return c
}

// SetNotifier registers the observer after construction. The wallet controller
// reads snapshots from this controller, so one of the two is wired late.
func (c *Controller) SetNotifier(n Notifier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// Toggle flips id in the selection and recomputes the summary.
// Non-positive ids are ignored entirely.
func (c *Controller) Toggle(id int) {
	if id <= 0 {
		return
	}
	c.mu.Lock()
	selected := c.set.Toggle(id)
	size := c.set.Len()
	c.mu.Unlock()

	c.logger.Debug().Int("number", id).Bool("selected", selected).Int("size", size).Msg("selection.toggled")
	c.RecomputeSummary()
}

// SetBuyerField stores one buyer input and recomputes the summary.
func (c *Controller) SetBuyerField(field buyer.Field, value string) {
	c.mu.Lock()
	c.buyer.Set(field, value)
	c.mu.Unlock()

	c.RecomputeSummary()
}

// RecomputeSummary renders the summary, toggles the transfer affordance and
// always notifies the observer; filtering by readiness is the observer's job.
func (c *Controller) RecomputeSummary() Summary {
	c.mu.RLock()
	numbers := c.set.Sorted()
	ready := len(numbers) > 0 && c.buyer.Complete()
	notifier := c.notifier
	c.mu.RUnlock()

	total, err := money.Extend(c.unitPrice, len(numbers))
	if err != nil {
		c.logger.Error().Err(err).Int("count", len(numbers)).Msg("selection.total_failed")
	}

	summary := Summary{
		Numbers: numbers,
		Count:   len(numbers),
		Total:   total,
		Ready:   ready,
	}

	c.view.RenderSummary(summary)
	c.view.SetTransferVisible(ready)

	// Called without holding c.mu: the observer reads Snapshot synchronously.
	if notifier != nil {
		notifier.NotifyChanged()
	}
	return summary
}

// OnPageSwapped re-applies the visual state of a freshly rendered grid page
// from the set (the set is the source of truth, not the DOM). If nothing on the
// page can be selected it asks the pager for the next page.
func (c *Controller) OnPageSwapped(page GridPage) []ItemRender {
	c.mu.RLock()
	renders := make([]ItemRender, len(page.Items))
	available := 0
	for i, item := range page.Items {
		state := RenderStateFor(item.Taken, c.set.Has(item.ID))
		renders[i] = ItemRender{ID: item.ID, State: state}
		if state != RenderTaken {
			available++
		}
	}
	c.mu.RUnlock()

	if available == 0 && page.HasNext && c.pager != nil {
		c.logger.Debug().Int("page", page.Number).Msg("selection.page_full_auto_advance")
		c.pager.Next()
	}
	return renders
}

// Snapshot returns a consistent copy of the fields for the wallet controller.
func (c *Controller) Snapshot() wallet.Snapshot {
	return c.Current()
}

// Current is Snapshot with the concrete type.
func (c *Controller) Current() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{Numbers: c.set.Sorted(), Buyer: c.buyer}
}

// Clear empties the selection without recomputing; callers recompute when ready.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set.Clear()
}

// IsSelected reports whether id is selected.
func (c *Controller) IsSelected(id int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.set.Has(id)
}
