package telephony

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/ParloAI/parlo-call-service/internal/ai"
	"github.com/ParloAI/parlo-call-service/internal/session"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	router       *mux.Router
	sessions     *session.Manager
	conversation *fakeConversation
	repos        *fakeRepos
}

func newWebhookFixture(authToken string) *webhookFixture {
	sessions := session.NewManager(session.NewStore(newFakeRedis()))
	conversation := &fakeConversation{}
	repos := newFakeRepos()
	pipeline := NewCompletionPipeline(sessions, conversation, repos)
	handler := NewWebhookHandler(sessions, conversation, repos, pipeline, authToken, "http://localhost:8080")

	router := mux.NewRouter()
	handler.SetupTelephonyRoutes(router.PathPrefix("/telephony").Subrouter())

	return &webhookFixture{
		router:       router,
		sessions:     sessions,
		conversation: conversation,
		repos:        repos,
	}
}

func (f *webhookFixture) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleVoiceKnownBusiness(t *testing.T) {
	f := newWebhookFixture("")
	f.repos.seedBusiness("+15557654321")

	rec := f.post(t, "/telephony/voice", url.Values{
		"CallSid": {"CA123"},
		"From":    {"+15551234567"},
		"To":      {"+15557654321"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "Thank you for calling Acme Cuts. We offer Haircut and Beard Trim.")
	assert.Contains(t, body, "<Gather")

	sess, err := f.sessions.Store().Load(context.Background(), "CA123")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "+15551234567", sess.CallerNumber)
	require.NotNil(t, sess.Company)
	assert.Equal(t, "Acme Cuts", sess.Company.BusinessName)
	assert.Equal(t, "user-1", sess.Company.UserID)
	require.Len(t, sess.Services, 2)
	require.Len(t, sess.History, 1, "the spoken greeting is the first history turn")
	assert.Equal(t, session.SpeakerAI, sess.History[0].Speaker)
}

func TestHandleVoiceUnknownNumber(t *testing.T) {
	f := newWebhookFixture("")

	rec := f.post(t, "/telephony/voice", url.Values{
		"CallSid": {"CA123"},
		"From":    {"+15551234567"},
		"To":      {"+15550000000"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "We could not find a business registered at this number")
	assert.Contains(t, body, "<Gather", "the call keeps listening instead of hanging up")

	sess, err := f.sessions.Store().Load(context.Background(), "CA123")
	require.NoError(t, err)
	require.NotNil(t, sess, "a session still exists for the unresolved call")
	assert.Nil(t, sess.Company)
}

func TestHandleVoiceMissingCallSid(t *testing.T) {
	f := newWebhookFixture("")

	rec := f.post(t, "/telephony/voice", url.Values{"From": {"+15551234567"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGatherConversationTurn(t *testing.T) {
	f := newWebhookFixture("")
	f.conversation.reply = &ai.Reply{Message: "We open at nine tomorrow."}

	_, err := f.sessions.EnsureSession(context.Background(), "CA123")
	require.NoError(t, err)

	rec := f.post(t, "/telephony/gather", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"when do you open?"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We open at nine tomorrow.")
	assert.Contains(t, rec.Body.String(), "<Gather")

	sess, err := f.sessions.Store().Load(context.Background(), "CA123")
	require.NoError(t, err)
	require.Len(t, sess.History, 2)
	assert.Equal(t, session.SpeakerCustomer, sess.History[0].Speaker)
	assert.Equal(t, "when do you open?", sess.History[0].Message)
	assert.Equal(t, session.SpeakerAI, sess.History[1].Speaker)
}

func TestHandleGatherHangupSignal(t *testing.T) {
	f := newWebhookFixture("")
	f.conversation.reply = &ai.Reply{Message: "Goodbye!", ShouldHangup: true}

	_, err := f.sessions.EnsureSession(context.Background(), "CA123")
	require.NoError(t, err)

	rec := f.post(t, "/telephony/gather", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"that's all"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Hangup")
	assert.NotContains(t, rec.Body.String(), "<Gather")
}

func TestHandleGatherEmptySpeechSkipsAI(t *testing.T) {
	f := newWebhookFixture("")

	_, err := f.sessions.EnsureSession(context.Background(), "CA123")
	require.NoError(t, err)

	rec := f.post(t, "/telephony/gather", url.Values{"CallSid": {"CA123"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "I didn&#39;t catch that")

	replyCalls, _ := f.conversation.counts()
	assert.Zero(t, replyCalls, "no recognized speech means no AI round trip")

	sess, err := f.sessions.Store().Load(context.Background(), "CA123")
	require.NoError(t, err)
	assert.Empty(t, sess.History, "the re-prompt is not a conversation turn")
}

func TestHandleGatherAIFailureSpeaksFallback(t *testing.T) {
	f := newWebhookFixture("")
	f.conversation.replyErr = errors.New("ai unreachable")

	_, err := f.sessions.EnsureSession(context.Background(), "CA123")
	require.NoError(t, err)

	rec := f.post(t, "/telephony/gather", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"hello?"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "having a little trouble")
	assert.Contains(t, rec.Body.String(), "<Gather", "the call keeps going after an AI failure")

	sess, err := f.sessions.Store().Load(context.Background(), "CA123")
	require.NoError(t, err)
	require.Len(t, sess.History, 2)
	assert.Equal(t, AIErrorMessage, sess.History[1].Message,
		"history records what was actually spoken")
}

func TestHandleStatusNonFinalIsLogOnly(t *testing.T) {
	f := newWebhookFixture("")

	_, err := f.sessions.EnsureSession(context.Background(), "CA123")
	require.NoError(t, err)

	rec := f.post(t, "/telephony/status", url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"ringing"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.repos.transcripts)

	sess, err := f.sessions.Store().Load(context.Background(), "CA123")
	require.NoError(t, err)
	assert.NotNil(t, sess, "non-final status must not tear the session down")
}

func TestHandleStatusUnknownIgnored(t *testing.T) {
	f := newWebhookFixture("")

	rec := f.post(t, "/telephony/status", url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"teleported"},
	})

	require.Equal(t, http.StatusOK, rec.Code, "unknown statuses are acknowledged, not retried")
	assert.Empty(t, f.repos.transcripts)
}

func TestHandleStatusCompletedEndToEnd(t *testing.T) {
	f := newWebhookFixture("")
	f.repos.seedBusiness("+15557654321")
	f.conversation.reply = &ai.Reply{Message: "Booked for Friday."}

	f.post(t, "/telephony/voice", url.Values{
		"CallSid": {"CA123"},
		"From":    {"+15551234567"},
		"To":      {"+15557654321"},
	})
	f.post(t, "/telephony/gather", url.Values{
		"CallSid":      {"CA123"},
		"SpeechResult": {"haircut on friday please"},
	})

	rec := f.post(t, "/telephony/status", url.Values{
		"CallSid":      {"CA123"},
		"CallStatus":   {"completed"},
		"CallDuration": {"42"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	ctx := context.Background()
	callLog, err := f.repos.CallLog().GetByCallSid(ctx, "CA123")
	require.NoError(t, err)
	require.NotNil(t, callLog)
	assert.Equal(t, "user-1", callLog.UserID)

	transcript, err := f.repos.Transcript().GetByCallSid(ctx, "CA123")
	require.NoError(t, err)
	require.NotNil(t, transcript)

	chunks, err := f.repos.Transcript().GetChunks(ctx, transcript.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 3, "greeting plus one caller/AI exchange")

	sess, err := f.sessions.Store().Load(ctx, "CA123")
	require.NoError(t, err)
	assert.Nil(t, sess)

	// Provider redelivery of the same callback is a no-op.
	rec = f.post(t, "/telephony/status", url.Values{
		"CallSid":    {"CA123"},
		"CallStatus": {"completed"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.repos.callLogs, 1)
	assert.Len(t, f.repos.transcripts, 1)
	assert.Len(t, f.repos.chunks, 3)
}

func TestSignatureValidation(t *testing.T) {
	const authToken = "test-auth-token"
	f := newWebhookFixture(authToken)
	f.repos.seedBusiness("+15557654321")

	form := url.Values{
		"CallSid": {"CA123"},
		"From":    {"+15551234567"},
		"To":      {"+15557654321"},
	}

	t.Run("missing signature rejected", func(t *testing.T) {
		rec := f.post(t, "/telephony/voice", form)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid signature accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/telephony/voice", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Twilio-Signature",
			signWebhook(authToken, "http://localhost:8080/telephony/voice", form))

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

// signWebhook computes the provider's HMAC-SHA1 webhook signature: the full
// URL concatenated with each form key and value in sorted key order.
func signWebhook(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	payload := fullURL
	for _, key := range keys {
		payload += key + form.Get(key)
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
