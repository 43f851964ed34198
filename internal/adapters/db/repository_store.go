package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"gorm.io/gorm"
)

// RepositoryStore defines an interface for repository metadata database operations
type RepositoryStore interface {
	UpsertRepository(ctx context.Context, repo *entities.Repository) error
	GetRepositoryByFullName(ctx context.Context, owner, name string) (*entities.Repository, error)
}

// GormRepositoryStore is a GORM-based implementation of RepositoryStore
type GormRepositoryStore struct {
	db *gorm.DB
}

// NewGormRepositoryStore initializes a new GormRepositoryStore
func NewGormRepositoryStore(db *gorm.DB) *GormRepositoryStore {
	return &GormRepositoryStore{db: db}
}

// UpsertRepository refreshes the metadata row for owner/name, creating it on
// first sight. The row id is stable across refreshes.
func (s *GormRepositoryStore) UpsertRepository(ctx context.Context, repo *entities.Repository) error {
	var existing entities.Repository
	err := s.db.WithContext(ctx).
		Where("owner_name = ? AND name = ?", repo.OwnerName, repo.Name).
		Limit(1).
		Find(&existing).Error
	if err != nil {
		return fmt.Errorf("failed to retrieve repository: %w", err)
	}

	if existing.ID != 0 {
		repo.ID = existing.ID
		repo.CreatedAt = existing.CreatedAt
	}
	if err := s.db.WithContext(ctx).Save(repo).Error; err != nil {
		return fmt.Errorf("failed to save repository: %w", err)
	}
	return nil
}

func (s *GormRepositoryStore) GetRepositoryByFullName(ctx context.Context, owner, name string) (*entities.Repository, error) {
	var repo entities.Repository
	err := s.db.WithContext(ctx).
		Where("owner_name = ? AND name = ?", owner, name).
		First(&repo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrRepositoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve repository: %w", err)
	}
	return &repo, nil
}
