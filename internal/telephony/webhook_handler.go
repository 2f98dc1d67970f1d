package telephony

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ParloAI/parlo-call-service/internal/ai"
	"github.com/ParloAI/parlo-call-service/internal/repository"
	"github.com/ParloAI/parlo-call-service/internal/session"
	"github.com/ParloAI/parlo-call-service/pkg/logger"
	"github.com/gorilla/mux"
	twilioclient "github.com/twilio/twilio-go/client"
	"go.uber.org/zap"
)

// WebhookHandler handles the voice provider's webhook callbacks: the initial
// inbound-call webhook, recognized-speech gathers and call status updates.
type WebhookHandler struct {
	sessions  *session.Manager
	ai        ai.Conversation
	repos     repository.RepositoryManager
	pipeline  *CompletionPipeline
	validator *twilioclient.RequestValidator
	baseURL   string

	statusHandlers map[CallStatus]func(ctx context.Context, event *StatusEvent)
}

// StatusEvent is one parsed status callback.
type StatusEvent struct {
	CallSid      string
	Status       CallStatus
	Caller       string
	Timestamp    time.Time
	CallDuration int
}

// NewWebhookHandler creates a telephony webhook handler. When authToken is
// empty, signature validation is disabled (local development).
func NewWebhookHandler(sessions *session.Manager, conversation ai.Conversation, repos repository.RepositoryManager, pipeline *CompletionPipeline, authToken, baseURL string) *WebhookHandler {
	h := &WebhookHandler{
		sessions: sessions,
		ai:       conversation,
		repos:    repos,
		pipeline: pipeline,
		baseURL:  baseURL,
	}
	if authToken != "" {
		v := twilioclient.NewRequestValidator(authToken)
		h.validator = &v
	}

	h.statusHandlers = map[CallStatus]func(ctx context.Context, event *StatusEvent){
		StatusQueued:     h.logStatus,
		StatusRinging:    h.logStatus,
		StatusInProgress: h.logStatus,
		StatusCompleted:  h.finalizeCall,
		StatusBusy:       h.finalizeCall,
		StatusFailed:     h.finalizeCall,
		StatusNoAnswer:   h.finalizeCall,
	}
	return h
}

// SetupTelephonyRoutes registers the webhook endpoints on a router already
// mounted at the /telephony prefix.
func (h *WebhookHandler) SetupTelephonyRoutes(router *mux.Router) {
	router.HandleFunc("/voice", h.HandleVoice).Methods("POST")
	router.HandleFunc("/gather", h.HandleGather).Methods("POST")
	router.HandleFunc("/status", h.HandleStatus).Methods("POST")
}

// HandleVoice answers a new inbound call: it creates the session, resolves
// the dialed business and speaks the greeting.
func (h *WebhookHandler) HandleVoice(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseWebhookForm(w, r)
	if !ok {
		return
	}

	callSid := form.Get("CallSid")
	if callSid == "" {
		http.Error(w, "CallSid is required", http.StatusBadRequest)
		return
	}
	from := form.Get("From")
	to := form.Get("To")

	logger.Base().Info("inbound call",
		zap.String("call_sid", callSid),
		zap.String("from", from),
		zap.String("to", to))

	ctx := r.Context()
	if _, err := h.sessions.EnsureSession(ctx, callSid); err != nil {
		logger.Base().Error("failed to create session", zap.String("call_sid", callSid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := h.sessions.SetCallerInfo(ctx, callSid, from, parseWebhookTime(form.Get("Timestamp"))); err != nil {
		logger.Base().Error("failed to set caller info", zap.String("call_sid", callSid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	greeting, err := h.prepareGreeting(ctx, callSid, to)
	if err != nil {
		logger.Base().Error("failed to prepare greeting", zap.String("call_sid", callSid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.AppendAIMessage(ctx, callSid, greeting); err != nil {
		logger.Base().Warn("failed to record greeting turn", zap.String("call_sid", callSid), zap.Error(err))
	}
	h.speakAndGather(w, greeting)
}

// prepareGreeting resolves the dialed number to a business, snapshots its
// services into the session and composes the spoken greeting. An unknown
// number still gets answered with a generic greeting.
func (h *WebhookHandler) prepareGreeting(ctx context.Context, callSid, to string) (string, error) {
	user, err := h.repos.Directory().FindUserByPhone(ctx, to)
	if err != nil {
		return "", err
	}
	if user == nil {
		logger.Base().Warn("no business registered for dialed number",
			zap.String("call_sid", callSid), zap.String("to", to))
		return UserNotFoundMessage, nil
	}

	services, err := h.repos.Directory().ListActiveServices(ctx, user.ID)
	if err != nil {
		return "", err
	}
	company, err := h.repos.Directory().GetCompanyByUserID(ctx, user.ID)
	if err != nil {
		return "", err
	}

	if err := h.sessions.SnapshotServices(ctx, callSid, services); err != nil {
		return "", err
	}

	var companyRef *session.CompanyRef
	greeting := ""
	if company != nil {
		if err := h.sessions.FillCompany(ctx, callSid, company, user); err != nil {
			return "", err
		}
		companyRef = &session.CompanyRef{
			ID:           company.ID,
			BusinessName: company.BusinessName,
			Email:        company.Email,
		}
		greeting = company.Greeting
	}

	sess, err := h.sessions.Store().Load(ctx, callSid)
	if err != nil {
		return "", err
	}
	var snapshot []session.ServiceSummary
	if sess != nil {
		snapshot = sess.Services
	}
	return WelcomeMessage(companyRef, greeting, snapshot), nil
}

// HandleGather processes recognized caller speech and replies with the AI's
// next utterance.
func (h *WebhookHandler) HandleGather(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseWebhookForm(w, r)
	if !ok {
		return
	}

	callSid := form.Get("CallSid")
	if callSid == "" {
		http.Error(w, "CallSid is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := h.sessions.EnsureSession(ctx, callSid); err != nil {
		logger.Base().Error("failed to ensure session", zap.String("call_sid", callSid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	speech := form.Get("SpeechResult")
	if speech == "" {
		// Nothing was recognized; re-prompt without burning an AI round trip.
		h.speakAndGather(w, NoSpeechMessage)
		return
	}

	if err := h.sessions.AppendUserMessage(ctx, callSid, speech); err != nil {
		logger.Base().Error("failed to record caller turn", zap.String("call_sid", callSid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	reply, err := h.ai.GetReply(ctx, callSid, speech)
	if err != nil {
		logger.Base().Error("AI reply failed", zap.String("call_sid", callSid), zap.Error(err))
		if appendErr := h.sessions.AppendAIMessage(ctx, callSid, AIErrorMessage); appendErr != nil {
			logger.Base().Warn("failed to record fallback turn", zap.String("call_sid", callSid), zap.Error(appendErr))
		}
		h.speakAndGather(w, AIErrorMessage)
		return
	}

	if err := h.sessions.AppendAIMessage(ctx, callSid, reply.Message); err != nil {
		logger.Base().Warn("failed to record AI turn", zap.String("call_sid", callSid), zap.Error(err))
	}

	if reply.ShouldHangup {
		h.speakAndHangup(w, reply.Message)
		return
	}
	h.speakAndGather(w, reply.Message)
}

// HandleStatus processes call status callbacks. The provider retries on
// non-2xx, so this endpoint always acknowledges with 200 once the payload is
// parsed; persistence failures are logged, not surfaced.
func (h *WebhookHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseWebhookForm(w, r)
	if !ok {
		return
	}

	callSid := form.Get("CallSid")
	if callSid == "" {
		http.Error(w, "CallSid is required", http.StatusBadRequest)
		return
	}

	rawStatus := form.Get("CallStatus")
	status, known := ParseCallStatus(rawStatus)
	if !known {
		logger.Base().Warn("unknown call status, ignoring",
			zap.String("call_sid", callSid), zap.String("status", rawStatus))
		w.WriteHeader(http.StatusOK)
		return
	}

	event := &StatusEvent{
		CallSid:   callSid,
		Status:    status,
		Caller:    form.Get("From"),
		Timestamp: parseWebhookTime(form.Get("Timestamp")),
	}
	if d := form.Get("CallDuration"); d != "" {
		if seconds, err := strconv.Atoi(d); err == nil {
			event.CallDuration = seconds
		}
	}

	h.statusHandlers[status](r.Context(), event)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) logStatus(_ context.Context, event *StatusEvent) {
	logger.Base().Info("call status update",
		zap.String("call_sid", event.CallSid),
		zap.String("status", string(event.Status)))
}

func (h *WebhookHandler) finalizeCall(ctx context.Context, event *StatusEvent) {
	logger.Base().Info("call reached final status",
		zap.String("call_sid", event.CallSid),
		zap.String("status", string(event.Status)),
		zap.Int("duration_seconds", event.CallDuration))

	if err := h.pipeline.Complete(ctx, event.CallSid); err != nil {
		logger.Base().Error("completion pipeline failed",
			zap.String("call_sid", event.CallSid), zap.Error(err))
	}
}

// parseWebhookForm parses the form-encoded webhook body and enforces the
// provider signature when a validator is configured.
func (h *WebhookHandler) parseWebhookForm(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if err := r.ParseForm(); err != nil {
		logger.Base().Error("failed to parse webhook form", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}

	if h.validator != nil {
		params := make(map[string]string, len(r.PostForm))
		for key := range r.PostForm {
			params[key] = r.PostForm.Get(key)
		}
		fullURL := h.baseURL + r.URL.RequestURI()
		if !h.validator.Validate(fullURL, params, r.Header.Get("X-Twilio-Signature")) {
			logger.Base().Warn("webhook signature validation failed",
				zap.String("path", r.URL.Path))
			http.Error(w, "Invalid signature", http.StatusForbidden)
			return nil, false
		}
	}

	return r.PostForm, true
}

func (h *WebhookHandler) speakAndGather(w http.ResponseWriter, text string) {
	doc, err := SpeakAndGather(text)
	h.respondTwiML(w, doc, err)
}

func (h *WebhookHandler) speakAndHangup(w http.ResponseWriter, text string) {
	doc, err := SpeakAndHangup(text)
	h.respondTwiML(w, doc, err)
}

func (h *WebhookHandler) respondTwiML(w http.ResponseWriter, doc string, err error) {
	if err != nil {
		logger.Base().Error("failed to render TwiML", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

// parseWebhookTime parses provider timestamps, which arrive as RFC1123Z in
// status callbacks and occasionally RFC3339 elsewhere. Unparseable values
// fall back to the receive time.
func parseWebhookTime(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}
	if t, err := time.Parse(time.RFC1123Z, raw); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Now()
}
