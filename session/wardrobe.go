package session

import "wardrobeapi/models"

// WardrobeStore is the ordered, id-indexed collection of extracted items.
// It is not safe for concurrent use; Session guards it with its control thread.
type WardrobeStore struct {
	items    []models.ClothingItem
	onChange listeners
}

func NewWardrobeStore() *WardrobeStore {
	return &WardrobeStore{}
}

func (s *WardrobeStore) OnChange(fn func()) {
	s.onChange.add(fn)
}

// AddItems prepends the batch, keeping the batch's own order.
// Duplicate content is kept: every item carries a fresh id.
func (s *WardrobeStore) AddItems(batch []models.ClothingItem) {
	if len(batch) == 0 {
		return
	}
	items := make([]models.ClothingItem, 0, len(batch)+len(s.items))
	items = append(items, batch...)
	s.items = append(items, s.items...)
	s.onChange.notify()
}

func (s *WardrobeStore) Items() []models.ClothingItem {
	out := make([]models.ClothingItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *WardrobeStore) Len() int {
	return len(s.items)
}

// Filter returns the items of one category in store order. CategoryAll or an
// empty category returns everything.
func (s *WardrobeStore) Filter(category models.Category) []models.ClothingItem {
	if category == models.CategoryAll || category == "" {
		return s.Items()
	}
	out := make([]models.ClothingItem, 0)
	for _, item := range s.items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out
}

func (s *WardrobeStore) FindByID(id string) (models.ClothingItem, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return models.ClothingItem{}, false
}

func (s *WardrobeStore) Remove(id string) bool {
	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			s.onChange.notify()
			return true
		}
	}
	return false
}

// Replace seeds the store from a restored snapshot without notifying.
func (s *WardrobeStore) Replace(items []models.ClothingItem) {
	s.items = make([]models.ClothingItem, len(items))
	copy(s.items, items)
}
