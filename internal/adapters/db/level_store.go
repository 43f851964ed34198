package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"gorm.io/gorm"
)

// LevelStore defines an interface for level ladder database operations
type LevelStore interface {
	GetLevelForScore(ctx context.Context, totalScore int) (*entities.Level, error)
	CreateLevel(ctx context.Context, level *entities.Level) error
	CountLevels(ctx context.Context) (int64, error)
}

// GormLevelStore is a GORM-based implementation of LevelStore
type GormLevelStore struct {
	db *gorm.DB
}

// NewGormLevelStore initializes a new GormLevelStore
func NewGormLevelStore(db *gorm.DB) *GormLevelStore {
	return &GormLevelStore{db: db}
}

// GetLevelForScore returns the highest ladder rung whose required experience
// does not exceed the score.
func (s *GormLevelStore) GetLevelForScore(ctx context.Context, totalScore int) (*entities.Level, error) {
	var level entities.Level
	err := s.db.WithContext(ctx).
		Where("required_exp <= ?", totalScore).
		Order("level_id DESC").
		First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrLevelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve level: %w", err)
	}
	return &level, nil
}

func (s *GormLevelStore) CreateLevel(ctx context.Context, level *entities.Level) error {
	if err := s.db.WithContext(ctx).Create(level).Error; err != nil {
		return fmt.Errorf("failed to create level: %w", err)
	}
	return nil
}

func (s *GormLevelStore) CountLevels(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&entities.Level{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
