package models

const (
	LookPending = "pending"
	LookStored  = "stored"
	LookFailed  = "failed"
)

type ArchivedLookItem struct {
	ItemID      string   `json:"item_id"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
}

// ArchivedLook is a look the user chose to keep.
type ArchivedLook struct {
	JsonModel
	UserID   string             `gorm:"index;not null" json:"user_id"`
	Items    []ArchivedLookItem `gorm:"serializer:json;type:jsonb" json:"items"`
	Style    *string            `json:"style"`
	ImageKey *string            `json:"-"`
	Status   string             `gorm:"default:pending" json:"status"`
}

// ArchivedLookOut is an ArchivedLook with a short lived read link to its composite.
type ArchivedLookOut struct {
	ArchivedLook
	ImageURL string `json:"image_url,omitempty"`
}

func LookItems(outfit Outfit) []ArchivedLookItem {
	items := make([]ArchivedLookItem, 0, len(outfit))
	for _, item := range outfit.Items() {
		items = append(items, ArchivedLookItem{ItemID: item.ID, Category: item.Category, Description: item.Description})
	}
	return items
}
