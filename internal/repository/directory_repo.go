package repository

import (
	"context"
	"fmt"

	"github.com/ParloAI/parlo-call-service/internal/domain"
	"gorm.io/gorm"
)

// GormDirectoryRepository handles lookups of users, companies and services
type GormDirectoryRepository struct {
	db *gorm.DB
}

// NewGormDirectoryRepository creates a new directory repository
func NewGormDirectoryRepository(db *gorm.DB) *GormDirectoryRepository {
	return &GormDirectoryRepository{db: db}
}

// FindUserByPhone retrieves the user that owns the given business phone number
func (r *GormDirectoryRepository) FindUserByPhone(ctx context.Context, phoneNumber string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("phone_number = ?", phoneNumber).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find user by phone: %w", err)
	}
	return &user, nil
}

// ListActiveServices retrieves the active services for a user ordered by
// display position
func (r *GormDirectoryRepository) ListActiveServices(ctx context.Context, userID string) ([]*domain.Service, error) {
	var services []*domain.Service
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("position ASC").
		Find(&services).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// GetCompanyByUserID retrieves the company profile for a user
func (r *GormDirectoryRepository) GetCompanyByUserID(ctx context.Context, userID string) (*domain.Company, error) {
	var company domain.Company
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&company).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}
