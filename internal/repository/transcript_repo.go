package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ParloAI/parlo-call-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTranscriptRepository handles database operations for transcripts and
// transcript chunks
type GormTranscriptRepository struct {
	db *gorm.DB
}

// NewGormTranscriptRepository creates a new transcript repository
func NewGormTranscriptRepository(db *gorm.DB) *GormTranscriptRepository {
	return &GormTranscriptRepository{db: db}
}

// Create creates a new transcript record
func (r *GormTranscriptRepository) Create(ctx context.Context, transcript *domain.Transcript) error {
	if transcript.ID == "" {
		transcript.ID = uuid.New().String()
	}
	if transcript.CreatedAt.IsZero() {
		transcript.CreatedAt = time.Now()
	}
	transcript.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).Create(transcript).Error; err != nil {
		return fmt.Errorf("failed to create transcript: %w", err)
	}
	return nil
}

// CreateChunks creates transcript chunks in batches
func (r *GormTranscriptRepository) CreateChunks(ctx context.Context, chunks []*domain.TranscriptChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	now := time.Now()
	for _, chunk := range chunks {
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		chunk.UpdatedAt = now
	}

	if err := r.db.WithContext(ctx).CreateInBatches(chunks, 100).Error; err != nil {
		return fmt.Errorf("failed to create transcript chunks: %w", err)
	}
	return nil
}

// GetByCallSid retrieves a transcript by provider call SID
func (r *GormTranscriptRepository) GetByCallSid(ctx context.Context, callSid string) (*domain.Transcript, error) {
	var transcript domain.Transcript
	if err := r.db.WithContext(ctx).Where("call_sid = ?", callSid).First(&transcript).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return &transcript, nil
}

// GetChunks retrieves all chunks for a transcript in conversation order
func (r *GormTranscriptRepository) GetChunks(ctx context.Context, transcriptID string) ([]*domain.TranscriptChunk, error) {
	var chunks []*domain.TranscriptChunk
	if err := r.db.WithContext(ctx).
		Where("transcript_id = ?", transcriptID).
		Order("start_at ASC").
		Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("failed to get transcript chunks: %w", err)
	}
	return chunks, nil
}
