package session

import "wardrobeapi/models"

// OutfitSelector holds at most one item per category.
type OutfitSelector struct {
	outfit   models.Outfit
	onChange listeners
}

func NewOutfitSelector() *OutfitSelector {
	return &OutfitSelector{outfit: models.Outfit{}}
}

func (s *OutfitSelector) OnChange(fn func()) {
	s.onChange.add(fn)
}

// Select puts item into its category slot, replacing any previous occupant.
// Selecting the item that already occupies the slot changes nothing.
func (s *OutfitSelector) Select(item models.ClothingItem) bool {
	if !s.put(item) {
		return false
	}
	s.onChange.notify()
	return true
}

// SelectAll applies several selections and notifies once.
func (s *OutfitSelector) SelectAll(items []models.ClothingItem) bool {
	changed := false
	for _, item := range items {
		if s.put(item) {
			changed = true
		}
	}
	if changed {
		s.onChange.notify()
	}
	return changed
}

func (s *OutfitSelector) put(item models.ClothingItem) bool {
	if current, ok := s.outfit[item.Category]; ok && current.ID == item.ID {
		return false
	}
	s.outfit[item.Category] = item
	return true
}

// Remove empties one slot. An absent category is a silent no-op.
func (s *OutfitSelector) Remove(category models.Category) bool {
	if _, ok := s.outfit[category]; !ok {
		return false
	}
	delete(s.outfit, category)
	s.onChange.notify()
	return true
}

// RemoveItem empties whichever slot holds the item with id.
func (s *OutfitSelector) RemoveItem(id string) bool {
	for category, item := range s.outfit {
		if item.ID == id {
			return s.Remove(category)
		}
	}
	return false
}

func (s *OutfitSelector) Clear() bool {
	if len(s.outfit) == 0 {
		return false
	}
	s.outfit = models.Outfit{}
	s.onChange.notify()
	return true
}

func (s *OutfitSelector) IsEmpty() bool {
	return len(s.outfit) == 0
}

func (s *OutfitSelector) Outfit() models.Outfit {
	return s.outfit.Clone()
}

// Restore seeds the selection without notifying. Entries with an unknown
// category are dropped.
func (s *OutfitSelector) Restore(outfit models.Outfit) {
	s.outfit = models.Outfit{}
	for category, item := range outfit {
		if !category.Valid() {
			continue
		}
		item.Category = category
		s.outfit[category] = item
	}
}

// PortraitSlot holds the optional base portrait the composite is rendered on.
type PortraitSlot struct {
	image    *models.ImageData
	onChange listeners
}

func NewPortraitSlot() *PortraitSlot {
	return &PortraitSlot{}
}

func (p *PortraitSlot) OnChange(fn func()) {
	p.onChange.add(fn)
}

// Set stores the portrait. Uploading the same image again still counts as a
// change and triggers a fresh render.
func (p *PortraitSlot) Set(image models.ImageData) {
	p.image = &image
	p.onChange.notify()
}

func (p *PortraitSlot) Clear() bool {
	if p.image == nil {
		return false
	}
	p.image = nil
	p.onChange.notify()
	return true
}

func (p *PortraitSlot) Get() *models.ImageData {
	if p.image == nil {
		return nil
	}
	image := *p.image
	return &image
}

func (p *PortraitSlot) Restore(image *models.ImageData) {
	if image == nil || image.IsZero() {
		p.image = nil
		return
	}
	restored := *image
	p.image = &restored
}
