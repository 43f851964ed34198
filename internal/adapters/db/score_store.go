package db

import (
	"context"
	"fmt"

	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"gorm.io/gorm"
)

// ScoreStore defines an interface for score snapshot database operations
type ScoreStore interface {
	CreateScore(ctx context.Context, score *entities.Score) error
	GetScoresByRepository(ctx context.Context, repositoryID uint) ([]entities.Score, error)
}

// GormScoreStore is a GORM-based implementation of ScoreStore
type GormScoreStore struct {
	db *gorm.DB
}

// NewGormScoreStore initializes a new GormScoreStore
func NewGormScoreStore(db *gorm.DB) *GormScoreStore {
	return &GormScoreStore{db: db}
}

// CreateScore appends a snapshot row; snapshots are never updated in place
func (s *GormScoreStore) CreateScore(ctx context.Context, score *entities.Score) error {
	if err := s.db.WithContext(ctx).Create(score).Error; err != nil {
		return fmt.Errorf("failed to create score: %w", err)
	}
	return nil
}

// GetScoresByRepository returns snapshots newest first
func (s *GormScoreStore) GetScoresByRepository(ctx context.Context, repositoryID uint) ([]entities.Score, error) {
	var scores []entities.Score
	err := s.db.WithContext(ctx).
		Where("repository_id = ?", repositoryID).
		Order("created_at DESC").
		Find(&scores).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve scores: %w", err)
	}
	return scores, nil
}
