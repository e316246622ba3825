package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Category string

const (
	CategoryTop       Category = "Top"
	CategoryBottom    Category = "Bottom"
	CategoryOuterwear Category = "Outerwear"
	CategoryFootwear  Category = "Footwear"
	CategoryAccessory Category = "Accessory"

	// CategoryAll is only meaningful as a wardrobe filter.
	CategoryAll Category = "All"
)

// Categories lists every category in canonical order. Outfit iteration,
// render garment order and display order all follow it.
var Categories = []Category{
	CategoryTop,
	CategoryBottom,
	CategoryOuterwear,
	CategoryFootwear,
	CategoryAccessory,
}

var titleCaser = cases.Title(language.English)

// ParseCategory normalizes what the vision backend returns ("top", "TOP ")
// into a Category. Unknown values are rejected.
func ParseCategory(raw string) (Category, error) {
	normalized := Category(titleCaser.String(strings.ToLower(strings.TrimSpace(raw))))
	for _, c := range Categories {
		if c == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown clothing category %q", raw)
}

// Valid reports whether c is exactly one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

func ValidateCategory(fl validator.FieldLevel) bool {
	return Category(fl.Field().String()).Valid()
}

// BoundingBox holds percentage offsets (0-100) into the source image.
type BoundingBox struct {
	YMin float64 `json:"ymin" firestore:"ymin"`
	XMin float64 `json:"xmin" firestore:"xmin"`
	YMax float64 `json:"ymax" firestore:"ymax"`
	XMax float64 `json:"xmax" firestore:"xmax"`
}

func (b BoundingBox) Validate() error {
	for _, v := range []float64{b.YMin, b.XMin, b.YMax, b.XMax} {
		if v < 0 || v > 100 {
			return fmt.Errorf("bounding box value %v out of [0,100]", v)
		}
	}
	if b.YMin > b.YMax || b.XMin > b.XMax {
		return fmt.Errorf("bounding box min exceeds max: %+v", b)
	}
	return nil
}

// ClothingItem is created by the extraction workflow and never changed afterwards.
type ClothingItem struct {
	ID            string      `json:"id" firestore:"id"`
	Category      Category    `json:"category" firestore:"category"`
	Description   string      `json:"description" firestore:"description"`
	ImageBlob     ImageData   `json:"imageBlob" firestore:"imageBlob"`
	OriginalImage ImageData   `json:"originalImage" firestore:"originalImage"`
	BoundingBox   BoundingBox `json:"boundingBox" firestore:"boundingBox"`
}

// ExtractedItem is one garment as reported by the vision backend.
type ExtractedItem struct {
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	Color       string      `json:"color"`
	Style       string      `json:"style"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

func (e ExtractedItem) Description() string {
	return strings.TrimSpace(e.Color + " " + e.Subcategory)
}
