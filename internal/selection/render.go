package selection

// RenderState is how one grid item should look.
type RenderState string

const (
	RenderAvailable RenderState = "available"
	RenderSelected  RenderState = "selected"
	RenderTaken     RenderState = "taken"
)

// RenderStateFor maps an item to its visual state. A taken item is never shown
// as selected, even if it is still in the set from before the page refreshed.
func RenderStateFor(taken, selected bool) RenderState {
	switch {
	case taken:
		return RenderTaken
	case selected:
		return RenderSelected
	default:
		return RenderAvailable
	}
}

// GridItem is one number as rendered by the grid collaborator.
type GridItem struct {
	ID    int
	Taken bool
}

// GridPage is a page of the number grid after a swap.
type GridPage struct {
	Number  int
	Items   []GridItem
	HasNext bool
}

// ItemRender is the visual state to apply to one item.
type ItemRender struct {
	ID    int
	State RenderState
}
