package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"wardrobeapi/models"
)

// PostgresSnapshotStore keeps snapshots in the session_snapshot_records table.
// Saves only touch the snapshot columns, so other columns survive.
type PostgresSnapshotStore struct {
	db *gorm.DB
}

func NewPostgresSnapshotStore(db *gorm.DB) *PostgresSnapshotStore {
	return &PostgresSnapshotStore{db: db}
}

func (s *PostgresSnapshotStore) Load(ctx context.Context, uid string) (*models.SessionSnapshot, error) {
	var record models.SessionSnapshotRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", uid).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", uid, err)
	}

	snapshot := &models.SessionSnapshot{
		WardrobeItems: record.WardrobeItems,
		Outfit:        record.Outfit,
		LastUpdated:   record.LastUpdated,
	}
	if snapshot.Outfit == nil {
		snapshot.Outfit = models.Outfit{}
	}
	if record.BaseModelImage != nil && *record.BaseModelImage != "" {
		image := models.ImageData(*record.BaseModelImage)
		snapshot.BaseModelImage = &image
	}
	return snapshot, nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, uid string, snapshot models.SessionSnapshot) error {
	record := models.SessionSnapshotRecord{
		UserID:        uid,
		WardrobeItems: snapshot.WardrobeItems,
		Outfit:        snapshot.Outfit,
	}
	if record.WardrobeItems == nil {
		record.WardrobeItems = []models.ClothingItem{}
	}
	if record.Outfit == nil {
		record.Outfit = models.Outfit{}
	}
	if snapshot.BaseModelImage != nil {
		portrait := string(*snapshot.BaseModelImage)
		record.BaseModelImage = &portrait
	}

	updates := clause.AssignmentColumns([]string{"wardrobe_items", "outfit", "base_model_image", "updated_at"})
	updates = append(updates, clause.Assignment{Column: clause.Column{Name: "last_updated"}, Value: gorm.Expr("NOW()")})

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: updates,
	}).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("save snapshot %s: %w", uid, result.Error)
	}
	return nil
}
