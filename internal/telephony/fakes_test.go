package telephony

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ParloAI/parlo-call-service/internal/ai"
	"github.com/ParloAI/parlo-call-service/internal/domain"
	"github.com/ParloAI/parlo-call-service/internal/repository"
	"github.com/ParloAI/parlo-call-service/internal/session"
	"github.com/ParloAI/parlo-call-service/pkg/redis"
	"github.com/google/uuid"
)

// fakeRedis is an in-memory Redis stand-in for session storage.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) GenerateKey(keyType redis.KeyType, identifier string) string {
	return fmt.Sprintf("%s:%s", keyType, identifier)
}

func (f *fakeRedis) GetValue(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.data[key]
	if !ok {
		return "", redis.ErrKeyNotExist
	}
	return val, nil
}

func (f *fakeRedis) SetValue(_ context.Context, key string, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeRedis) DelValue(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

// fakeConversation scripts the AI bridge.
type fakeConversation struct {
	mu           sync.Mutex
	replyCalls   int
	summaryCalls int

	reply      *ai.Reply
	replyErr   error
	summary    *ai.Summary
	summaryErr error
}

func (f *fakeConversation) GetReply(_ context.Context, _, _ string) (*ai.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replyCalls++
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	if f.reply != nil {
		return f.reply, nil
	}
	return &ai.Reply{Message: "How can I help?"}, nil
}

func (f *fakeConversation) GenerateSummary(_ context.Context, _ string, _ *session.CallSession) (*ai.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaryCalls++
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	if f.summary != nil {
		return f.summary, nil
	}
	return &ai.Summary{Summary: "Routine call.", KeyPoints: []string{"nothing notable"}}, nil
}

func (f *fakeConversation) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replyCalls, f.summaryCalls
}

// fakeRepos is an in-memory RepositoryManager.
type fakeRepos struct {
	mu sync.Mutex

	callLogs    map[string]*domain.CallLog
	transcripts map[string]*domain.Transcript
	chunks      []*domain.TranscriptChunk

	users     map[string]*domain.User    // keyed by phone number
	companies map[string]*domain.Company // keyed by user id
	services  map[string][]*domain.Service

	directoryErr error
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		callLogs:    make(map[string]*domain.CallLog),
		transcripts: make(map[string]*domain.Transcript),
		users:       make(map[string]*domain.User),
		companies:   make(map[string]*domain.Company),
		services:    make(map[string][]*domain.Service),
	}
}

var _ repository.RepositoryManager = (*fakeRepos)(nil)

func (f *fakeRepos) CallLog() repository.CallLogRepository       { return (*fakeCallLogRepo)(f) }
func (f *fakeRepos) Transcript() repository.TranscriptRepository { return (*fakeTranscriptRepo)(f) }
func (f *fakeRepos) Directory() repository.DirectoryRepository   { return (*fakeDirectoryRepo)(f) }
func (f *fakeRepos) Ping(context.Context) error                  { return nil }
func (f *fakeRepos) Close() error                                { return nil }

type fakeCallLogRepo fakeRepos

func (r *fakeCallLogRepo) Create(_ context.Context, log *domain.CallLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callLogs[log.CallSid]; exists {
		return errors.New("duplicate call_sid")
	}
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	r.callLogs[log.CallSid] = log
	return nil
}

func (r *fakeCallLogRepo) GetByCallSid(_ context.Context, callSid string) (*domain.CallLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.callLogs[callSid], nil
}

func (r *fakeCallLogRepo) ExistsByCallSid(_ context.Context, callSid string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.callLogs[callSid]
	return ok, nil
}

type fakeTranscriptRepo fakeRepos

func (r *fakeTranscriptRepo) Create(_ context.Context, transcript *domain.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.transcripts[transcript.CallSid]; exists {
		return errors.New("duplicate call_sid")
	}
	if transcript.ID == "" {
		transcript.ID = uuid.New().String()
	}
	r.transcripts[transcript.CallSid] = transcript
	return nil
}

func (r *fakeTranscriptRepo) CreateChunks(_ context.Context, chunks []*domain.TranscriptChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunks...)
	return nil
}

func (r *fakeTranscriptRepo) GetByCallSid(_ context.Context, callSid string) (*domain.Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcripts[callSid], nil
}

func (r *fakeTranscriptRepo) GetChunks(_ context.Context, transcriptID string) ([]*domain.TranscriptChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TranscriptChunk
	for _, chunk := range r.chunks {
		if chunk.TranscriptID == transcriptID {
			out = append(out, chunk)
		}
	}
	return out, nil
}

type fakeDirectoryRepo fakeRepos

func (r *fakeDirectoryRepo) FindUserByPhone(_ context.Context, phoneNumber string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.directoryErr != nil {
		return nil, r.directoryErr
	}
	return r.users[phoneNumber], nil
}

func (r *fakeDirectoryRepo) ListActiveServices(_ context.Context, userID string) ([]*domain.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.services[userID], nil
}

func (r *fakeDirectoryRepo) GetCompanyByUserID(_ context.Context, userID string) (*domain.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.companies[userID], nil
}

func companyFixture() *domain.Company {
	return &domain.Company{
		ID:           "co-1",
		UserID:       "user-1",
		BusinessName: "Acme Cuts",
		Email:        "book@acmecuts.test",
	}
}

// seedBusiness registers a user with a company and two active services.
func (f *fakeRepos) seedBusiness(phone string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[phone] = &domain.User{ID: "user-1", PhoneNumber: phone}
	f.companies["user-1"] = &domain.Company{
		ID:           "co-1",
		UserID:       "user-1",
		BusinessName: "Acme Cuts",
		Email:        "book@acmecuts.test",
	}
	f.services["user-1"] = []*domain.Service{
		{ID: "svc-1", UserID: "user-1", Name: "Haircut", Price: 35, Active: true, Position: 1},
		{ID: "svc-2", UserID: "user-1", Name: "Beard Trim", Price: 15, Active: true, Position: 2},
	}
}
