package dbhelper

import (
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wardrobeapi/models"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func SetupDB() *gorm.DB {
	db, err := gorm.Open(postgres.Open(
		fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			getEnv("DB_USERNAME", ""),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_HOST", ""),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_NAME", ""),
		),
	), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(300)
	sqlDB.SetConnMaxLifetime(time.Minute * 5)

	Migrate(db, &models.UserAccount{})
	Migrate(db, &models.SessionSnapshotRecord{})
	Migrate(db, &models.ArchivedLook{})
	return db
}

// SetupTestDB connects to the local test database. Tests are skipped when
// DB_HOST is not set.
func SetupTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST is not set, skipping postgres test")
	}
	if os.Getenv("DB_USERNAME") == "" {
		t.Setenv("DB_USERNAME", "wardrobe")
		t.Setenv("DB_PASSWORD", "wardrobe")
		t.Setenv("DB_NAME", "wardrobe")
	}
	return SetupDB()
}
