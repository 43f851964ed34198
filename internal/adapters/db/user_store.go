package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
	"gorm.io/gorm"
)

// UserStore defines an interface for user database operations
type UserStore interface {
	GetUserByID(ctx context.Context, id uint) (*entities.User, error)
	GetUserByNickname(ctx context.Context, nickname string) (*entities.User, error)
	GetOrCreateUser(ctx context.Context, nickname string) (*entities.User, error)
	SaveUser(ctx context.Context, user *entities.User) error
	GetAllUsers(ctx context.Context) ([]entities.User, error)
}

// GormUserStore is a GORM-based implementation of UserStore
type GormUserStore struct {
	db *gorm.DB
}

// NewGormUserStore initializes a new GormUserStore
func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) GetUserByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &user, nil
}

func (s *GormUserStore) GetUserByNickname(ctx context.Context, nickname string) (*entities.User, error) {
	var user entities.User
	err := s.db.WithContext(ctx).Where("nickname = ?", nickname).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, entities.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &user, nil
}

// GetOrCreateUser retrieves a user by nickname, creating a level-1 user with a
// zero score when none exists yet.
func (s *GormUserStore) GetOrCreateUser(ctx context.Context, nickname string) (*entities.User, error) {
	var user entities.User
	err := s.db.WithContext(ctx).Where("nickname = ?", nickname).Limit(1).Find(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if user.ID == 0 {
		user = entities.User{
			Nickname:   nickname,
			Level:      1,
			TotalScore: 0,
			JoinedAt:   s.db.NowFunc(),
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	}

	return &user, nil
}

func (s *GormUserStore) SaveUser(ctx context.Context, user *entities.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

func (s *GormUserStore) GetAllUsers(ctx context.Context) ([]entities.User, error) {
	var users []entities.User
	if err := s.db.WithContext(ctx).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}
	return users, nil
}
