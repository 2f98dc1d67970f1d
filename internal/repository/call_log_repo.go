package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ParloAI/parlo-call-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCallLogRepository handles database operations for call logs
type GormCallLogRepository struct {
	db *gorm.DB
}

// NewGormCallLogRepository creates a new call log repository
func NewGormCallLogRepository(db *gorm.DB) *GormCallLogRepository {
	return &GormCallLogRepository{db: db}
}

// Create creates a new call log record
func (r *GormCallLogRepository) Create(ctx context.Context, callLog *domain.CallLog) error {
	if callLog.ID == "" {
		callLog.ID = uuid.New().String()
	}
	if callLog.CallerName == "" {
		callLog.CallerName = "Unknown Caller"
	}
	if callLog.CreatedAt.IsZero() {
		callLog.CreatedAt = time.Now()
	}
	callLog.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(callLog).Error; err != nil {
		return fmt.Errorf("failed to create call log: %w", err)
	}
	return nil
}

// GetByCallSid retrieves a call log by provider call SID
func (r *GormCallLogRepository) GetByCallSid(ctx context.Context, callSid string) (*domain.CallLog, error) {
	var callLog domain.CallLog
	if err := r.db.WithContext(ctx).Where("call_sid = ?", callSid).First(&callLog).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call log: %w", err)
	}
	return &callLog, nil
}

// ExistsByCallSid checks if a call log exists for the given call SID
func (r *GormCallLogRepository) ExistsByCallSid(ctx context.Context, callSid string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CallLog{}).Where("call_sid = ?", callSid).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check call log existence: %w", err)
	}
	return count > 0, nil
}
