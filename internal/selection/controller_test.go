package selection

import (
	"reflect"
	"testing"

	"github.com/rifasite/checkout/internal/buyer"
	"github.com/rifasite/checkout/internal/gateway"
)

type recordingView struct {
	summaries []Summary
	visible   []bool
}

func (v *recordingView) RenderSummary(s Summary)         { v.summaries = append(v.summaries, s) }
func (v *recordingView) SetTransferVisible(visible bool) { v.visible = append(v.visible, visible) }

type countingNotifier struct{ n int }

func (c *countingNotifier) NotifyChanged() { c.n++ }

type countingPager struct{ n int }

func (p *countingPager) Next() { p.n++ }

func TestToggle(t *testing.T) {
	view := &recordingView{}
	notifier := &countingNotifier{}
	c := NewController(2000, WithView(view))
	c.SetNotifier(notifier)

	c.Toggle(7)
	c.Toggle(3)
	c.Toggle(0)
	c.Toggle(-4)

	if notifier.n != 2 {
		t.Errorf("expected 2 notifications (invalid ids are no-ops), got %d", notifier.n)
	}
	last := view.summaries[len(view.summaries)-1]
	if !reflect.DeepEqual(last.Numbers, []int{3, 7}) {
		t.Errorf("Numbers = %v, want ascending [3 7]", last.Numbers)
	}
	if last.Count != 2 || last.Total != 4000 {
		t.Errorf("Count=%d Total=%d, want 2 and 4000", last.Count, last.Total)
	}
	if last.ListText() != "3, 7" {
		t.Errorf("ListText() = %q", last.ListText())
	}

	c.Toggle(3)
	if c.IsSelected(3) {
		t.Error("second toggle should deselect 3")
	}
}

func TestRecomputeSummary_AlwaysNotifies(t *testing.T) {
	view := &recordingView{}
	notifier := &countingNotifier{}
	c := NewController(2000, WithView(view))
	c.SetNotifier(notifier)

	// Not ready at all, still notified.
	c.SetBuyerField(buyer.FieldName, "Ana")
	c.SetBuyerField(buyer.FieldEmail, "bad-email")
	if notifier.n != 2 {
		t.Fatalf("expected 2 notifications, got %d", notifier.n)
	}
	if view.visible[len(view.visible)-1] {
		t.Error("transfer affordance should be hidden while not ready")
	}

	c.Toggle(5)
	c.SetBuyerField(buyer.FieldEmail, "ana@x.com")
	if !view.visible[len(view.visible)-1] {
		t.Error("transfer affordance should be visible once ready")
	}

	empty := Summary{}
	if empty.ListText() != "—" {
		t.Errorf("empty ListText() = %q, want dash", empty.ListText())
	}
}

func TestOnPageSwapped(t *testing.T) {
	c := NewController(2000)
	c.Toggle(101)
	c.Toggle(150)

	renders := c.OnPageSwapped(GridPage{
		Number: 2,
		Items: []GridItem{
			{ID: 101},
			{ID: 102},
			{ID: 150, Taken: true},
		},
		HasNext: true,
	})

	want := []ItemRender{
		{ID: 101, State: RenderSelected},
		{ID: 102, State: RenderAvailable},
		{ID: 150, State: RenderTaken},
	}
	if !reflect.DeepEqual(renders, want) {
		t.Errorf("renders = %+v, want %+v", renders, want)
	}
}

func TestOnPageSwapped_AutoAdvance(t *testing.T) {
	tests := []struct {
		name     string
		page     GridPage
		wantNext int
	}{
		{
			name:     "all taken advances",
			page:     GridPage{Items: []GridItem{{ID: 1, Taken: true}, {ID: 2, Taken: true}}, HasNext: true},
			wantNext: 1,
		},
		{
			name:     "last page does not advance",
			page:     GridPage{Items: []GridItem{{ID: 1, Taken: true}}, HasNext: false},
			wantNext: 0,
		},
		{
			name:     "one available stays",
			page:     GridPage{Items: []GridItem{{ID: 1, Taken: true}, {ID: 2}}, HasNext: true},
			wantNext: 0,
		},
		{
			name:     "empty page advances",
			page:     GridPage{HasNext: true},
			wantNext: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pager := &countingPager{}
			c := NewController(2000, WithPager(pager))
			c.OnPageSwapped(tt.page)
			if pager.n != tt.wantNext {
				t.Errorf("Next() called %d times, want %d", pager.n, tt.wantNext)
			}
		})
	}
}

func TestSnapshot_SignatureTracksEveryField(t *testing.T) {
	c := NewController(2000)
	c.Toggle(3)
	c.Toggle(7)
	c.SetBuyerField(buyer.FieldName, "Ana")
	c.SetBuyerField(buyer.FieldEmail, "ana@x.com")

	base := c.Snapshot()
	if !base.Ready() {
		t.Fatal("snapshot should be ready")
	}

	c.Toggle(3)
	c.Toggle(3)
	if c.Snapshot().Signature() != base.Signature() {
		t.Error("toggling off and on should restore the signature")
	}

	c.Toggle(9)
	if c.Snapshot().Signature() == base.Signature() {
		t.Error("adding a number must change the signature")
	}
	c.Toggle(9)

	c.SetBuyerField(buyer.FieldEmail, "ana@y.com")
	if c.Snapshot().Signature() == base.Signature() {
		t.Error("changing the email must change the signature")
	}
	c.SetBuyerField(buyer.FieldEmail, "ana@x.com")

	c.SetBuyerField(buyer.FieldPhone, "+569")
	if c.Snapshot().Signature() == base.Signature() {
		t.Error("changing the phone must change the signature")
	}

	req := c.Current().Request()
	if req.Kind != gateway.KindRaffle || !reflect.DeepEqual(req.ChosenNumbers, []int{3, 7}) {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestClear(t *testing.T) {
	c := NewController(2000)
	c.Toggle(1)
	c.Toggle(2)
	c.Clear()
	if got := c.RecomputeSummary(); got.Count != 0 || got.Total != 0 {
		t.Errorf("summary after Clear = %+v", got)
	}
}
