package repository

import (
	"context"

	"github.com/ParloAI/parlo-call-service/internal/domain"
	"gorm.io/gorm"
)

// CallLogRepository defines the creation contract the completion pipeline
// honors: at most one call-log row per call SID.
type CallLogRepository interface {
	Create(ctx context.Context, callLog *domain.CallLog) error
	GetByCallSid(ctx context.Context, callSid string) (*domain.CallLog, error)
	ExistsByCallSid(ctx context.Context, callSid string) (bool, error)
}

// TranscriptRepository persists transcripts and their ordered chunks.
type TranscriptRepository interface {
	Create(ctx context.Context, transcript *domain.Transcript) error
	CreateChunks(ctx context.Context, chunks []*domain.TranscriptChunk) error
	GetByCallSid(ctx context.Context, callSid string) (*domain.Transcript, error)
	GetChunks(ctx context.Context, transcriptID string) ([]*domain.TranscriptChunk, error)
}

// DirectoryRepository is the read-only view of the platform's CRUD data the
// call service needs: who owns a dialed number, their company profile, and
// the active services a caller can book.
type DirectoryRepository interface {
	FindUserByPhone(ctx context.Context, phoneNumber string) (*domain.User, error)
	ListActiveServices(ctx context.Context, userID string) ([]*domain.Service, error)
	GetCompanyByUserID(ctx context.Context, userID string) (*domain.Company, error)
}

// RepositoryManager combines all repositories
type RepositoryManager interface {
	CallLog() CallLogRepository
	Transcript() TranscriptRepository
	Directory() DirectoryRepository

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db             *gorm.DB
	callLogRepo    *GormCallLogRepository
	transcriptRepo *GormTranscriptRepository
	directoryRepo  *GormDirectoryRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:             db,
		callLogRepo:    NewGormCallLogRepository(db),
		transcriptRepo: NewGormTranscriptRepository(db),
		directoryRepo:  NewGormDirectoryRepository(db),
	}
}

// CallLog returns the call log repository
func (m *GormRepositoryManager) CallLog() CallLogRepository {
	return m.callLogRepo
}

// Transcript returns the transcript repository
func (m *GormRepositoryManager) Transcript() TranscriptRepository {
	return m.transcriptRepo
}

// Directory returns the directory repository
func (m *GormRepositoryManager) Directory() DirectoryRepository {
	return m.directoryRepo
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
