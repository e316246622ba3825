package models

// Outfit maps a category to the snapshot of the item selected for it.
// At most one item per category holds by construction.
type Outfit map[Category]ClothingItem

// Items returns the selected items in canonical category order.
func (o Outfit) Items() []ClothingItem {
	items := make([]ClothingItem, 0, len(o))
	for _, c := range Categories {
		if item, ok := o[c]; ok {
			items = append(items, item)
		}
	}
	return items
}

func (o Outfit) Clone() Outfit {
	out := make(Outfit, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

type RenderStatus string

const (
	RenderIdle             RenderStatus = "idle"
	RenderAwaitingPortrait RenderStatus = "awaiting_portrait"
	RenderRendering        RenderStatus = "rendering"
	RenderRendered         RenderStatus = "rendered"
	RenderFailed           RenderStatus = "failed"
)

// RenderState is what the client displays for the composite slot.
// Image is the last successful composite and stays visible while a newer
// render is in flight or after it failed.
type RenderState struct {
	Status RenderStatus `json:"status"`
	Epoch  uint64       `json:"epoch"`
	Image  *ImageData   `json:"image,omitempty"`
	Error  string       `json:"error,omitempty"`
}
