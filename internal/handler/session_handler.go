package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ParloAI/parlo-call-service/internal/session"
	"github.com/ParloAI/parlo-call-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionHandler is the internal API the AI service calls back into while a
// call is live: intent classification, slot filling and booking flags all
// land here and are merged into the Redis session.
type SessionHandler struct {
	sessions *session.Manager
}

// NewSessionHandler creates a session handler
func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SessionUpdateRequest carries the fields the AI service wants merged into a
// live session. All fields are optional; absent ones are left untouched.
type SessionUpdateRequest struct {
	Intent           *string                 `json:"intent,omitempty"`
	Service          *session.ServiceSummary `json:"service,omitempty"`
	ServiceBookedAt  *time.Time              `json:"serviceBookedAt,omitempty"`
	CallerInfo       *session.CallerInfo     `json:"callerInfo,omitempty"`
	ConfirmBooking   bool                    `json:"confirmBooking,omitempty"`
	ConfirmEmailSent bool                    `json:"confirmEmailSent,omitempty"`
}

// SetupSessionRoutes registers the session API on a router already mounted
// at the /internal prefix.
func (h *SessionHandler) SetupSessionRoutes(router *mux.Router) {
	router.HandleFunc("/sessions/{callSid}", h.HandleGetSession).Methods("GET")
	router.HandleFunc("/sessions/{callSid}", h.HandleUpdateSession).Methods("POST")
}

// HandleGetSession returns the live session document for one call.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	callSid := mux.Vars(r)["callSid"]

	sess, err := h.sessions.Store().Load(r.Context(), callSid)
	if err != nil {
		logger.Base().Error("failed to load session", zap.String("call_sid", callSid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if sess == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess)
}

// HandleUpdateSession merges slot updates into a live session. Updates for a
// session that has already expired or completed are acknowledged and dropped,
// mirroring how mid-call updates behave everywhere else in the service.
func (h *SessionHandler) HandleUpdateSession(w http.ResponseWriter, r *http.Request) {
	callSid := mux.Vars(r)["callSid"]

	var req SessionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if err := h.applyUpdate(ctx, callSid, &req); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		logger.Base().Error("failed to update session", zap.String("call_sid", callSid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

func (h *SessionHandler) applyUpdate(ctx context.Context, callSid string, req *SessionUpdateRequest) error {
	if req.Intent != nil {
		if err := h.sessions.SetIntent(ctx, callSid, *req.Intent); err != nil {
			return err
		}
	}
	if req.Service != nil {
		if err := h.sessions.SetServiceSelection(ctx, callSid, *req.Service, req.ServiceBookedAt); err != nil {
			return err
		}
	}
	if req.CallerInfo != nil {
		if err := h.sessions.SetCallerDetails(ctx, callSid, *req.CallerInfo); err != nil {
			return err
		}
	}
	if req.ConfirmBooking {
		if err := h.sessions.MarkBookingConfirmed(ctx, callSid); err != nil {
			return err
		}
	}
	if req.ConfirmEmailSent {
		if err := h.sessions.MarkEmailSent(ctx, callSid); err != nil {
			return err
		}
	}
	return nil
}
