package db

import (
	"context"
	"fmt"

	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ExperienceStore defines an interface for experience record database operations
type ExperienceStore interface {
	CreateRecord(ctx context.Context, record *entities.ExperienceRecord) (bool, error)
	HasRepositoryBonus(ctx context.Context, userID uint, repositoryName string) (bool, error)
	GetByUser(ctx context.Context, userID uint) ([]entities.ExperienceRecord, error)
}

// GormExperienceStore is a GORM-based implementation of ExperienceStore
type GormExperienceStore struct {
	db *gorm.DB
}

// NewGormExperienceStore initializes a new GormExperienceStore
func NewGormExperienceStore(db *gorm.DB) *GormExperienceStore {
	return &GormExperienceStore{db: db}
}

// CreateRecord inserts an award under the (user, contribution, kind)
// uniqueness constraint. The bool reports whether a row was actually written;
// losing the race to an existing award is not an error.
func (s *GormExperienceStore) CreateRecord(ctx context.Context, record *entities.ExperienceRecord) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create experience record: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// HasRepositoryBonus reports whether the user already received the one-time
// bonus for a repository, resolved through the contribution the bonus is
// tagged to.
func (s *GormExperienceStore) HasRepositoryBonus(ctx context.Context, userID uint, repositoryName string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&entities.ExperienceRecord{}).
		Joins("JOIN contributions ON contributions.id = experience_records.contribution_id").
		Where("experience_records.user_id = ? AND experience_records.kind = ? AND contributions.repository_name = ?",
			userID, entities.KindRepositoryBonus, repositoryName).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check repository bonus: %w", err)
	}
	return count > 0, nil
}

func (s *GormExperienceStore) GetByUser(ctx context.Context, userID uint) ([]entities.ExperienceRecord, error) {
	var records []entities.ExperienceRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve experience records: %w", err)
	}
	return records, nil
}
