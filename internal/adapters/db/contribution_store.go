package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContributionStore defines an interface for contribution database operations
type ContributionStore interface {
	CreateContribution(ctx context.Context, contribution *entities.Contribution) error
	GetLatestByUser(ctx context.Context, userID uint) (*entities.Contribution, error)
	GetByUser(ctx context.Context, userID uint) ([]entities.Contribution, error)
}

// GormContributionStore is a GORM-based implementation of ContributionStore
type GormContributionStore struct {
	db *gorm.DB
}

// NewGormContributionStore initializes a new GormContributionStore
func NewGormContributionStore(db *gorm.DB) *GormContributionStore {
	return &GormContributionStore{db: db}
}

// CreateContribution inserts a contribution under the identity uniqueness
// constraint. Losing to the constraint returns ErrDuplicateContribution; the
// row is left untouched either way.
func (s *GormContributionStore) CreateContribution(ctx context.Context, contribution *entities.Contribution) error {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(contribution)
	if result.Error != nil {
		return fmt.Errorf("failed to create contribution: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.ErrDuplicateContribution
	}
	return nil
}

// GetLatestByUser returns the most recently contributed record of a user, or
// nil when the user has none yet.
func (s *GormContributionStore) GetLatestByUser(ctx context.Context, userID uint) (*entities.Contribution, error) {
	var contribution entities.Contribution
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("contributed_at DESC").
		First(&contribution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve latest contribution: %w", err)
	}
	return &contribution, nil
}

// GetByUser returns all contributions of a user, oldest first
func (s *GormContributionStore) GetByUser(ctx context.Context, userID uint) ([]entities.Contribution, error) {
	var contributions []entities.Contribution
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("contributed_at ASC").
		Find(&contributions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve contributions: %w", err)
	}
	return contributions, nil
}
