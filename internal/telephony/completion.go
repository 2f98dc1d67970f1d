package telephony

import (
	"context"

	"github.com/ParloAI/parlo-call-service/internal/ai"
	"github.com/ParloAI/parlo-call-service/internal/domain"
	"github.com/ParloAI/parlo-call-service/internal/repository"
	"github.com/ParloAI/parlo-call-service/internal/session"
	"github.com/ParloAI/parlo-call-service/pkg/logger"
	"go.uber.org/zap"
)

// Fallback transcript content used when summary generation fails. The call
// record is still persisted so the conversation is never silently lost.
const (
	FallbackSummary  = "Call summary generation failed"
	FallbackKeyPoint = "Summary could not be generated"
)

// CompletionPipeline persists a finished call and tears down its live
// session. It is driven by final status callbacks and is idempotent: the
// session delete at the end makes any redelivered callback a no-op.
type CompletionPipeline struct {
	sessions *session.Manager
	ai       ai.Conversation
	repos    repository.RepositoryManager
}

// NewCompletionPipeline creates a completion pipeline
func NewCompletionPipeline(sessions *session.Manager, conversation ai.Conversation, repos repository.RepositoryManager) *CompletionPipeline {
	return &CompletionPipeline{
		sessions: sessions,
		ai:       conversation,
		repos:    repos,
	}
}

// Complete runs the persistence sequence for one finished call:
// summary, call log (guarded), transcript, chunks, then session delete.
// A missing session means the call was already completed or abandoned past
// its TTL; both cases are a clean no-op.
func (p *CompletionPipeline) Complete(ctx context.Context, callSid string) error {
	sess, err := p.sessions.Store().Load(ctx, callSid)
	if err != nil {
		return err
	}
	if sess == nil {
		logger.Base().Info("no session for completed call, skipping persistence",
			zap.String("callSid", callSid))
		return nil
	}

	summary := p.generateSummary(ctx, callSid, sess)

	if err := p.ensureCallLog(ctx, sess); err != nil {
		return err
	}

	transcript := &domain.Transcript{
		CallSid:   callSid,
		Summary:   summary.Summary,
		KeyPoints: domain.StringArray(summary.KeyPoints),
	}
	if err := p.repos.Transcript().Create(ctx, transcript); err != nil {
		return err
	}

	chunks := BuildChunks(transcript.ID, sess.History)
	if err := p.repos.Transcript().CreateChunks(ctx, chunks); err != nil {
		return err
	}

	if err := p.sessions.Store().Delete(ctx, callSid); err != nil {
		return err
	}

	logger.Base().Info("call persisted",
		zap.String("callSid", callSid),
		zap.Int("turns", len(sess.History)))
	return nil
}

// generateSummary asks the AI service for a call summary, falling back to a
// fixed placeholder so persistence never depends on the AI being up.
func (p *CompletionPipeline) generateSummary(ctx context.Context, callSid string, sess *session.CallSession) *ai.Summary {
	summary, err := p.ai.GenerateSummary(ctx, callSid, sess)
	if err != nil {
		logger.Base().Warn("summary generation failed, using fallback",
			zap.String("callSid", callSid),
			zap.Error(err))
		return &ai.Summary{
			Summary:   FallbackSummary,
			KeyPoints: []string{FallbackKeyPoint},
		}
	}
	return summary
}

// ensureCallLog creates the call log row unless one already exists. The
// upstream intent classifier may have created it mid-call; the session flag
// is the fast path and the database lookup is the authoritative guard.
func (p *CompletionPipeline) ensureCallLog(ctx context.Context, sess *session.CallSession) error {
	if sess.IntentClassified {
		return nil
	}

	exists, err := p.repos.CallLog().ExistsByCallSid(ctx, sess.CallSid)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	callLog := &domain.CallLog{
		CallSid:      sess.CallSid,
		CallerNumber: sess.CallerNumber,
		CallerName:   sess.CallerName(),
		Intent:       sess.Intent,
		StartAt:      sess.CallStartAt,
	}
	if sess.Company != nil {
		callLog.UserID = sess.Company.UserID
	}
	if sess.User.Service != nil {
		id := sess.User.Service.ID
		callLog.ServiceBookedID = &id
	}

	return p.repos.CallLog().Create(ctx, callLog)
}

// BuildChunks converts a session's conversation history into transcript
// chunks. StartAt is the turn's unix second offset by its history index so
// chunk ordering stays strict even when turns land in the same second.
func BuildChunks(transcriptID string, history []session.Turn) []*domain.TranscriptChunk {
	chunks := make([]*domain.TranscriptChunk, 0, len(history))
	for i, turn := range history {
		speakerType := domain.SpeakerTypeUser
		if turn.Speaker == session.SpeakerAI {
			speakerType = domain.SpeakerTypeAI
		}
		chunks = append(chunks, &domain.TranscriptChunk{
			TranscriptID: transcriptID,
			SpeakerType:  speakerType,
			Text:         turn.Message,
			StartAt:      turn.StartedAt.Unix() + int64(i),
		})
	}
	return chunks
}
