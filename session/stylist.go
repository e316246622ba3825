package session

import (
	"context"
	"fmt"
	"strings"

	"wardrobeapi/models"
)

// Stylist asks the recommender for an outfit in one of the catalog styles.
type Stylist struct {
	recommender Recommender
	styles      []models.Style
}

func NewStylist(recommender Recommender, styles []models.Style) *Stylist {
	if len(styles) == 0 {
		styles = models.DefaultStyles
	}
	return &Stylist{recommender: recommender, styles: styles}
}

func (s *Stylist) Styles() []models.Style {
	out := make([]models.Style, len(s.styles))
	copy(out, s.styles)
	return out
}

func (s *Stylist) FindStyle(id string) (models.Style, bool) {
	for _, style := range s.styles {
		if style.ID == id {
			return style, true
		}
	}
	return models.Style{}, false
}

// BuildInventory renders the text-only inventory sent to the stylist.
func BuildInventory(items []models.ClothingItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("ID: %s, Category: %s, Description: %s", item.ID, item.Category, item.Description))
	}
	return strings.Join(lines, "\n")
}

// Recommend issues exactly one recommender call. Any failure, including a
// response that does not match the schema, is reported as ErrRecommendationFailed.
func (s *Stylist) Recommend(ctx context.Context, items []models.ClothingItem, styleID string) (*models.SmartOutfitResponse, error) {
	style, ok := s.FindStyle(styleID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStyle, styleID)
	}
	if len(items) == 0 {
		return nil, ErrEmptyWardrobe
	}
	resp, err := s.recommender.RecommendOutfit(ctx, BuildInventory(items), style.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecommendationFailed, err)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecommendationFailed, err)
	}
	return resp, nil
}

// ResolveSuggestion maps the suggested ids onto wardrobe items in the order
// top, outerwear, bottom, footwear. Null ids, ids the wardrobe no longer has,
// and the accessory suggestion are skipped.
func ResolveSuggestion(resp *models.SmartOutfitResponse, find func(id string) (models.ClothingItem, bool)) []models.ClothingItem {
	if resp == nil {
		return nil
	}
	resolved := make([]models.ClothingItem, 0, 4)
	for _, suggestion := range []*models.SmartOutfitSuggestion{
		resp.Outfit.Top,
		resp.Outfit.Outerwear,
		resp.Outfit.Bottom,
		resp.Outfit.Footwear,
	} {
		if suggestion == nil || suggestion.ID == nil {
			continue
		}
		if item, ok := find(*suggestion.ID); ok {
			resolved = append(resolved, item)
		}
	}
	return resolved
}
