//go:build js && wasm

package dom

import (
	"strconv"
	"syscall/js"

	"github.com/rifasite/checkout/internal/donation"
	"github.com/rifasite/checkout/internal/selection"
)

// Element ids used by the checkout templates.
const (
	idConfig         = "mp-config"
	idGrid           = "numbers-grid"
	idSelectedCount  = "selected-count"
	idSelectedList   = "selected-list"
	idSelectedTotal  = "selected-total"
	idBuyerName      = "buyer_name"
	idBuyerEmail     = "buyer_email"
	idBuyerPhone     = "buyer_phone"
	idAmountInput    = "donation_amount"
	idAmountDisplay  = "donation-amount-display"
	idTransferButton = "transfer-reserve-btn"
	idTransferStatus = "transfer-status"
)

var selectedClasses = []any{"bg-blue-600", "text-white", "border-blue-600"}

func document() js.Value {
	return js.Global().Get("document")
}

func byID(id string) js.Value {
	return document().Call("getElementById", id)
}

func setText(id, text string) {
	if el := byID(id); el.Truthy() {
		el.Set("textContent", text)
	}
}

func setHidden(el js.Value, hidden bool) {
	if !el.Truthy() {
		return
	}
	if hidden {
		el.Get("classList").Call("add", "hidden")
		return
	}
	el.Get("classList").Call("remove", "hidden")
}

// SummaryView renders the raffle summary block.
type SummaryView struct{}

func (SummaryView) RenderSummary(s selection.Summary) {
	setText(idSelectedCount, strconv.Itoa(s.Count))
	setText(idSelectedList, s.ListText())
	setText(idSelectedTotal, s.Total.String())
}

func (SummaryView) SetTransferVisible(visible bool) {
	setHidden(byID(idTransferButton), !visible)
}

// AmountView renders the donation amount display.
type AmountView struct{}

func (AmountView) RenderAmount(d donation.Display) {
	setText(idAmountDisplay, d.Formatted)
}

// applyRender sets the classes of one grid button.
func applyRender(btn js.Value, state selection.RenderState) {
	cl := btn.Get("classList")
	switch state {
	case selection.RenderSelected:
		cl.Call("remove", "bg-white")
		cl.Call("add", selectedClasses...)
	case selection.RenderTaken:
		cl.Call("remove", selectedClasses...)
		btn.Set("disabled", true)
	default:
		cl.Call("remove", selectedClasses...)
		cl.Call("add", "bg-white")
	}
}
