package storage

import (
	"fmt"
	"log"

	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"github.com/ossdoctor/contribution-service/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB(cfg config.Config) *gorm.DB {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Automatically migrate the schema; the uniqueness constraints on
	// contributions and experience records live here, not in application code
	if err := db.AutoMigrate(
		&entities.User{},
		&entities.Contribution{},
		&entities.ExperienceRecord{},
		&entities.Level{},
		&entities.Repository{},
		&entities.Score{},
	); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}
