//go:build js && wasm

// Package dom binds the checkout controllers to the browser page.
package dom

import (
	"context"
	"strconv"
	"strings"
	"syscall/js"

	"github.com/rs/zerolog"

	"github.com/rifasite/checkout/internal/buyer"
	cerrors "github.com/rifasite/checkout/internal/errors"
	"github.com/rifasite/checkout/internal/selection"
	"github.com/rifasite/checkout/internal/transfer"
)

// PageConfig is what the server template exposes on the config element.
type PageConfig struct {
	PublicKey string
	UnitPrice int64
	Kind      string
}

// ReadPageConfig reads the data attributes of #mp-config. ok is false when
// the element is absent.
func ReadPageConfig() (cfg PageConfig, ok bool) {
	el := byID(idConfig)
	if !el.Truthy() {
		return cfg, false
	}
	ds := el.Get("dataset")
	cfg.PublicKey = strings.TrimSpace(stringOr(ds.Get("publicKey")))
	cfg.UnitPrice, _ = strconv.ParseInt(stringOr(ds.Get("price")), 10, 64)
	cfg.Kind = stringOr(ds.Get("kind"))
	return cfg, true
}

func stringOr(v js.Value) string {
	if v.Type() == js.TypeString {
		return v.String()
	}
	return ""
}

// CSRFToken reads the csrftoken cookie.
func CSRFToken() string {
	for _, part := range strings.Split(document().Get("cookie").String(), ";") {
		name, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if found && name == "csrftoken" {
			return value
		}
	}
	return ""
}

// Grid drives the paginated number grid, which the server renders with htmx.
type Grid struct{}

// Next clicks the grid's "next page" control, if it has one.
func (Grid) Next() {
	if next := nextControl(byID(idGrid)); next.Truthy() {
		next.Call("click")
	}
}

// Refresh asks htmx to reload the current grid page.
func (Grid) Refresh() {
	htmx := js.Global().Get("htmx")
	grid := byID(idGrid)
	if htmx.Truthy() && grid.Truthy() {
		htmx.Call("trigger", grid, "grid:refresh")
	}
}

func nextControl(grid js.Value) js.Value {
	if !grid.Truthy() {
		return js.Null()
	}
	return grid.Call("querySelector", "[data-next-page]")
}

// Location navigates the window.
type Location struct{}

func (Location) Navigate(url string) {
	js.Global().Get("location").Call("assign", url)
}

// Binder owns the event listeners registered on the page.
type Binder struct {
	logger zerolog.Logger
	funcs  []js.Func
}

// NewBinder creates a binder.
func NewBinder(logger zerolog.Logger) *Binder {
	return &Binder{logger: logger}
}

func (b *Binder) listen(target js.Value, event string, fn func(js.Value)) {
	if !target.Truthy() {
		return
	}
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		ev := js.Undefined()
		if len(args) > 0 {
			ev = args[0]
		}
		fn(ev)
		return nil
	})
	b.funcs = append(b.funcs, f)
	target.Call("addEventListener", event, f)
}

// BuyerSink receives buyer field edits.
type BuyerSink interface {
	SetBuyerField(buyer.Field, string)
}

// BindBuyer forwards the buyer inputs to sink.
func (b *Binder) BindBuyer(sink BuyerSink) {
	for id, field := range map[string]buyer.Field{
		idBuyerName:  buyer.FieldName,
		idBuyerEmail: buyer.FieldEmail,
		idBuyerPhone: buyer.FieldPhone,
	} {
		el := byID(id)
		b.listen(el, "input", func(js.Value) {
			sink.SetBuyerField(field, el.Get("value").String())
		})
	}
}

// BindGrid wires number clicks and grid page swaps to sel.
func (b *Binder) BindGrid(sel *selection.Controller) {
	grid := byID(idGrid)
	b.listen(grid, "click", func(ev js.Value) {
		btn := ev.Get("target").Call("closest", ".number-btn")
		if !btn.Truthy() || btn.Get("disabled").Bool() {
			return
		}
		id, err := strconv.Atoi(stringOr(btn.Get("dataset").Get("number")))
		if err != nil {
			return
		}
		sel.Toggle(id)
		state := selection.RenderAvailable
		if sel.IsSelected(id) {
			state = selection.RenderSelected
		}
		applyRender(btn, state)
	})

	b.listen(document().Get("body"), "htmx:afterSwap", func(ev js.Value) {
		target := ev.Get("target")
		if !target.Truthy() || target.Get("id").String() != idGrid {
			return
		}
		buttons := target.Call("querySelectorAll", ".number-btn")
		page := selection.GridPage{HasNext: nextControl(target).Truthy()}
		byNumber := make(map[int]js.Value, buttons.Length())
		for i := 0; i < buttons.Length(); i++ {
			btn := buttons.Index(i)
			id, err := strconv.Atoi(stringOr(btn.Get("dataset").Get("number")))
			if err != nil {
				continue
			}
			byNumber[id] = btn
			page.Items = append(page.Items, selection.GridItem{ID: id, Taken: btn.Get("disabled").Bool()})
		}
		page.Number, _ = strconv.Atoi(stringOr(target.Get("dataset").Get("page")))
		for _, r := range sel.OnPageSwapped(page) {
			applyRender(byNumber[r.ID], r.State)
		}
	})
}

// AmountSink receives donation amount edits.
type AmountSink interface {
	SetAmount(string)
}

// BindAmount forwards the donation amount input.
func (b *Binder) BindAmount(sink AmountSink) {
	el := byID(idAmountInput)
	b.listen(el, "input", func(js.Value) {
		sink.SetAmount(el.Get("value").String())
	})
}

// BindTransfer runs a reservation when the transfer button is clicked.
func (b *Binder) BindTransfer(ctx context.Context, svc *transfer.Service) {
	btn := byID(idTransferButton)
	b.listen(btn, "click", func(ev js.Value) {
		ev.Call("preventDefault")
		// The reservation is a blocking request; never run it on the event loop.
		go func() {
			btn.Set("disabled", true)
			defer btn.Set("disabled", false)

			conf, err := svc.ReserveByTransfer(ctx)
			if err != nil {
				msg := cerrors.MessageOf(err, "No pudimos reservar tus números. Intenta nuevamente.")
				if nums := transfer.ConflictNumbers(err); len(nums) > 0 {
					msg += " (" + joinInts(nums) + ")"
				}
				if code := cerrors.CodeOf(err); !code.IsValidation() {
					b.logger.Warn().Err(err).Str("error_code", string(code)).Msg("dom.transfer_failed")
				}
				setText(idTransferStatus, msg)
				return
			}
			setText(idTransferStatus, conf.Message)
		}()
	})
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// Release removes every listener callback.
func (b *Binder) Release() error {
	for _, f := range b.funcs {
		f.Release()
	}
	b.funcs = nil
	return nil
}

// Origin is the page's scheme and host; backend paths are relative to it.
func Origin() string {
	return js.Global().Get("location").Get("origin").String()
}
