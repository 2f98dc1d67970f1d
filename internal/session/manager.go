package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ParloAI/parlo-call-service/internal/domain"
	"github.com/ParloAI/parlo-call-service/pkg/logger"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned by operations that require the session to
// already exist. The append-style helpers never return it; they skip silently
// because an expired session just means the call was abandoned.
var ErrSessionNotFound = errors.New("call session not found")

// Manager is the lifecycle helper every webhook handler goes through. It
// guarantees handlers never operate on an absent session (EnsureSession) and
// wraps the store's read-modify-write operations with conversation semantics.
type Manager struct {
	store *Store
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(store *Store) *Manager {
	return &Manager{store: store}
}

// Store exposes the underlying session store.
func (m *Manager) Store() *Store {
	return m.store
}

// EnsureSession loads the session for callSid, creating an empty skeleton if
// it does not exist. This is the get-or-create entry point for all handlers.
func (m *Manager) EnsureSession(ctx context.Context, callSid string) (*CallSession, error) {
	sess, err := m.store.Load(ctx, callSid)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}
	return m.store.Create(ctx, callSid)
}

// AppendUserMessage appends a caller turn stamped with the current time.
func (m *Manager) AppendUserMessage(ctx context.Context, callSid, message string) error {
	return m.store.AppendHistory(ctx, callSid, Turn{
		Speaker:   SpeakerCustomer,
		Message:   message,
		StartedAt: time.Now(),
	})
}

// AppendAIMessage appends an AI turn stamped with the current time.
func (m *Manager) AppendAIMessage(ctx context.Context, callSid, message string) error {
	return m.store.AppendHistory(ctx, callSid, Turn{
		Speaker:   SpeakerAI,
		Message:   message,
		StartedAt: time.Now(),
	})
}

// FillCompany stores a normalized company association. The owning user id is
// resolved from the company row or, failing that, from the user record.
func (m *Manager) FillCompany(ctx context.Context, callSid string, company *domain.Company, user *domain.User) error {
	userID := company.UserID
	if userID == "" && user != nil {
		userID = user.ID
	}
	return m.store.AppendCompany(ctx, callSid, &CompanyRef{
		ID:           company.ID,
		BusinessName: company.BusinessName,
		Email:        company.Email,
		UserID:       userID,
	})
}

// SnapshotServices copies the callee's active services into the session as an
// immutable snapshot for the rest of the call.
func (m *Manager) SnapshotServices(ctx context.Context, callSid string, services []*domain.Service) error {
	sess, err := m.store.Load(ctx, callSid)
	if err != nil {
		return err
	}
	if sess == nil {
		logger.Base().Info("session absent, skipping services snapshot",
			zap.String("call_sid", callSid))
		return nil
	}

	var summaries []ServiceSummary
	if err := copier.Copy(&summaries, &services); err != nil {
		return fmt.Errorf("failed to snapshot services for %s: %w", callSid, err)
	}
	sess.Services = summaries
	return m.store.Save(ctx, sess)
}

// SetCallerInfo records the caller number and call start time. Unlike the
// append helpers it fails when the session is missing: it runs immediately
// after EnsureSession in the same request, so absence here is a genuine bug
// or race, not an abandoned call.
func (m *Manager) SetCallerInfo(ctx context.Context, callSid, callerNumber string, callStartAt time.Time) error {
	sess, err := m.store.Load(ctx, callSid)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("set caller info for %s: %w", callSid, ErrSessionNotFound)
	}

	sess.CallerNumber = callerNumber
	sess.CallStartAt = callStartAt
	return m.store.Save(ctx, sess)
}

// SetIntent records the upstream classifier's intent. The classification
// happens at most once per session; later calls are ignored.
func (m *Manager) SetIntent(ctx context.Context, callSid, intent string) error {
	return m.mutate(ctx, callSid, "intent", func(sess *CallSession) {
		if sess.IntentClassified {
			return
		}
		sess.Intent = intent
		sess.IntentClassified = true
	})
}

// SetServiceSelection records which service the caller picked and, when
// known, the booked time slot.
func (m *Manager) SetServiceSelection(ctx context.Context, callSid string, svc ServiceSummary, bookedTime *time.Time) error {
	return m.mutate(ctx, callSid, "service selection", func(sess *CallSession) {
		sess.User.Service = &svc
		if bookedTime != nil {
			sess.User.ServiceBookedTime = bookedTime
		}
	})
}

// SetCallerDetails fills in caller identity collected by the AI.
func (m *Manager) SetCallerDetails(ctx context.Context, callSid string, info CallerInfo) error {
	return m.mutate(ctx, callSid, "caller details", func(sess *CallSession) {
		sess.User.UserInfo = &info
	})
}

// MarkBookingConfirmed flips the booking flag. Flags are monotonic and are
// never reset within a session.
func (m *Manager) MarkBookingConfirmed(ctx context.Context, callSid string) error {
	return m.mutate(ctx, callSid, "booking confirmation", func(sess *CallSession) {
		sess.ConfirmBooking = true
	})
}

// MarkEmailSent flips the confirmation-email flag.
func (m *Manager) MarkEmailSent(ctx context.Context, callSid string) error {
	return m.mutate(ctx, callSid, "email confirmation", func(sess *CallSession) {
		sess.ConfirmEmailSent = true
	})
}

// mutate applies fn under read-modify-write with the skip-when-absent policy.
func (m *Manager) mutate(ctx context.Context, callSid, what string, fn func(*CallSession)) error {
	sess, err := m.store.Load(ctx, callSid)
	if err != nil {
		return err
	}
	if sess == nil {
		logger.Base().Info("session absent, skipping update",
			zap.String("call_sid", callSid), zap.String("update", what))
		return nil
	}

	fn(sess)
	return m.store.Save(ctx, sess)
}
