package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB opens an in-memory SQLite database and migrates every table,
// including the uniqueness constraints the engines rely on.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&entities.User{},
		&entities.Contribution{},
		&entities.ExperienceRecord{},
		&entities.Level{},
		&entities.Repository{},
		&entities.Score{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}
