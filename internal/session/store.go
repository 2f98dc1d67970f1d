package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ParloAI/parlo-call-service/pkg/logger"
	"github.com/ParloAI/parlo-call-service/pkg/redis"
	"go.uber.org/zap"
)

// Store persists call sessions as JSON documents in Redis, one key per call
// SID, with the TTL refreshed on every write. A vanished key is an expected
// state (expired or already completed), never an error.
type Store struct {
	redisSvc redis.RedisServiceInterface
}

// NewStore creates a session store over the given Redis service.
func NewStore(redisSvc redis.RedisServiceInterface) *Store {
	return &Store{redisSvc: redisSvc}
}

func (s *Store) key(callSid string) string {
	return s.redisSvc.GenerateKey(redis.CALL_SESSION, callSid)
}

// Load returns the session for callSid, or (nil, nil) when it is absent.
// A stored document that no longer parses is treated as absent rather than
// letting a parse failure into the call-handling path.
func (s *Store) Load(ctx context.Context, callSid string) (*CallSession, error) {
	val, err := s.redisSvc.GetValue(ctx, s.key(callSid))
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session %s: %w", callSid, err)
	}

	var sess CallSession
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		logger.Base().Warn("stored session is malformed, treating as absent",
			zap.String("call_sid", callSid), zap.Error(err))
		return nil, nil
	}
	return &sess, nil
}

// Create persists an empty session skeleton for callSid and returns it.
func (s *Store) Create(ctx context.Context, callSid string) (*CallSession, error) {
	sess := &CallSession{
		CallSid:  callSid,
		Services: []ServiceSummary{},
		History:  []Turn{},
	}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	logger.Base().Info("call session created", zap.String("call_sid", callSid))
	return sess, nil
}

// Save writes the full session document and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sess *CallSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sess.CallSid, err)
	}
	if err := s.redisSvc.SetValue(ctx, s.key(sess.CallSid), string(data), SessionTTL); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sess.CallSid, err)
	}
	return nil
}

// Delete removes the session key. Deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, callSid string) error {
	if err := s.redisSvc.DelValue(ctx, s.key(callSid)); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", callSid, err)
	}
	return nil
}

// AppendHistory appends one turn via read-modify-write. When the session has
// vanished the append is skipped with a log line; an expired call must never
// crash webhook handling.
func (s *Store) AppendHistory(ctx context.Context, callSid string, turn Turn) error {
	sess, err := s.Load(ctx, callSid)
	if err != nil {
		return err
	}
	if sess == nil {
		logger.Base().Info("session absent, skipping history append",
			zap.String("call_sid", callSid), zap.String("speaker", string(turn.Speaker)))
		return nil
	}

	sess.History = append(sess.History, turn)
	return s.Save(ctx, sess)
}

// AppendCompany attaches the company association via read-modify-write,
// with the same skip-when-absent policy as AppendHistory.
func (s *Store) AppendCompany(ctx context.Context, callSid string, company *CompanyRef) error {
	sess, err := s.Load(ctx, callSid)
	if err != nil {
		return err
	}
	if sess == nil {
		logger.Base().Info("session absent, skipping company append",
			zap.String("call_sid", callSid))
		return nil
	}

	sess.Company = company
	return s.Save(ctx, sess)
}
