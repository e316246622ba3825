package models

import (
	"errors"
	"strings"
)

type Style struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var DefaultStyles = []Style{
	{ID: "Minimalist", Title: "Minimalist", Description: "Clean lines, neutral tones, effortless"},
	{ID: "Old Money", Title: "Old Money", Description: "Classic, polished, timeless elegance"},
	{ID: "Soft Girl", Title: "Soft Girl", Description: "Pastel, feminine, dreamy layers"},
	{ID: "Resort", Title: "Resort", Description: "Breezy, vacation-ready, effortless chic"},
}

// SmartOutfitSuggestion references a wardrobe item by id. ID is nil when the
// stylist suggests a piece the wardrobe does not have.
type SmartOutfitSuggestion struct {
	ID          *string `json:"id"`
	Description string  `json:"description"`
	Reason      string  `json:"reason"`
}

type SmartOutfit struct {
	Top       *SmartOutfitSuggestion `json:"top,omitempty"`
	Outerwear *SmartOutfitSuggestion `json:"outerwear,omitempty"`
	Bottom    *SmartOutfitSuggestion `json:"bottom,omitempty"`
	Footwear  *SmartOutfitSuggestion `json:"footwear,omitempty"`
	Accessory *SmartOutfitSuggestion `json:"accessory,omitempty"`
}

type SmartOutfitResponse struct {
	Style       string      `json:"style"`
	Outfit      SmartOutfit `json:"outfit"`
	OverallVibe string      `json:"overall_vibe"`
}

var ErrMalformedRecommendation = errors.New("malformed outfit recommendation")

// Validate checks the fields the response schema marks as required.
func (r *SmartOutfitResponse) Validate() error {
	if r == nil {
		return ErrMalformedRecommendation
	}
	if strings.TrimSpace(r.Style) == "" || strings.TrimSpace(r.OverallVibe) == "" {
		return ErrMalformedRecommendation
	}
	for _, s := range []*SmartOutfitSuggestion{r.Outfit.Top, r.Outfit.Outerwear, r.Outfit.Bottom, r.Outfit.Footwear, r.Outfit.Accessory} {
		if s != nil && strings.TrimSpace(s.Description) == "" {
			return ErrMalformedRecommendation
		}
	}
	return nil
}
