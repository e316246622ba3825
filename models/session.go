package models

import "time"

// SessionSnapshot is the persisted unit {wardrobe, outfit, portrait} of one user.
type SessionSnapshot struct {
	WardrobeItems  []ClothingItem `json:"wardrobeItems"`
	Outfit         Outfit         `json:"outfit"`
	BaseModelImage *ImageData     `json:"baseModelImage,omitempty"`
	// LastUpdated is assigned by the storage backend, never by the caller.
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// SessionSnapshotRecord is the postgres row behind PostgresSnapshotStore.
// Columns outside the snapshot ones are left untouched by saves.
type SessionSnapshotRecord struct {
	JsonModel
	UserID         string         `gorm:"uniqueIndex;not null" json:"user_id"`
	WardrobeItems  []ClothingItem `gorm:"serializer:json;type:jsonb" json:"wardrobe_items"`
	Outfit         Outfit         `gorm:"serializer:json;type:jsonb" json:"outfit"`
	BaseModelImage *string        `gorm:"type:text" json:"base_model_image"`
	LastUpdated    *time.Time     `gorm:"default:now()" json:"last_updated"`
	// set by support tooling, never by the synchronizer
	Note *string `gorm:"type:text" json:"note"`
}
