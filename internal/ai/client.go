package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ParloAI/parlo-call-service/internal/session"
	"github.com/ParloAI/parlo-call-service/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// RequestTimeout bounds each attempt against the AI service. Both the
	// conversation and summary paths share it because both sit in the
	// synchronous webhook-response path.
	RequestTimeout = 5 * time.Second

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries = 2
)

// Reply is the AI's answer to one caller utterance.
type Reply struct {
	Message      string
	ShouldHangup bool
}

// Summary is the end-of-call digest produced by the AI service.
type Summary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
}

// Conversation is the bridge to the external AI conversation engine.
// Implementations must apply the shared timeout and retry budget.
type Conversation interface {
	GetReply(ctx context.Context, callSid, message string) (*Reply, error)
	GenerateSummary(ctx context.Context, callSid string, sess *session.CallSession) (*Summary, error)
}

// Client talks to the AI service over HTTP with a fixed per-attempt timeout
// and a bounded retry count. On exhaustion the error propagates; callers
// supply the spoken or persisted fallback.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// NewClient creates an AI service client. The secret, when set, signs a
// bearer token attached to every request.
func NewClient(baseURL, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: RequestTimeout,
		},
	}
}

type conversationRequest struct {
	CallSid         string          `json:"callSid"`
	CustomerMessage customerMessage `json:"customerMessage"`
}

type customerMessage struct {
	Speaker   string    `json:"speaker"`
	Message   string    `json:"message"`
	StartedAt time.Time `json:"startedAt"`
}

type conversationResponse struct {
	AIResponse struct {
		Message string `json:"message"`
	} `json:"aiResponse"`
	ShouldHangup bool `json:"shouldHangup"`
}

type summaryRequest struct {
	CallSid      string          `json:"callSid"`
	Conversation []summaryTurn   `json:"conversation"`
	ServiceInfo  summaryServices `json:"serviceInfo"`
}

type summaryTurn struct {
	Speaker   string    `json:"speaker"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type summaryServices struct {
	Name    string `json:"name"`
	Booked  bool   `json:"booked"`
	Company string `json:"company"`
}

// GetReply sends the caller's utterance to the conversation endpoint and
// returns the AI's spoken reply.
func (c *Client) GetReply(ctx context.Context, callSid, message string) (*Reply, error) {
	payload := conversationRequest{
		CallSid: callSid,
		CustomerMessage: customerMessage{
			Speaker:   string(session.SpeakerCustomer),
			Message:   message,
			StartedAt: time.Now(),
		},
	}

	var resp conversationResponse
	if err := c.post(ctx, "/ai/conversation", payload, &resp); err != nil {
		return nil, fmt.Errorf("ai conversation for %s: %w", callSid, err)
	}

	return &Reply{
		Message:      resp.AIResponse.Message,
		ShouldHangup: resp.ShouldHangup,
	}, nil
}

// GenerateSummary posts the full conversation history plus the booking
// context to the summarization endpoint.
func (c *Client) GenerateSummary(ctx context.Context, callSid string, sess *session.CallSession) (*Summary, error) {
	payload := summaryRequest{
		CallSid:      callSid,
		Conversation: make([]summaryTurn, 0, len(sess.History)),
		ServiceInfo: summaryServices{
			Name:    sess.BookedServiceName(),
			Booked:  sess.ConfirmBooking,
			Company: companyName(sess),
		},
	}
	for _, turn := range sess.History {
		payload.Conversation = append(payload.Conversation, summaryTurn{
			Speaker:   string(turn.Speaker),
			Message:   turn.Message,
			Timestamp: turn.StartedAt,
		})
	}

	var resp Summary
	if err := c.post(ctx, "/ai/summary", payload, &resp); err != nil {
		return nil, fmt.Errorf("ai summary for %s: %w", callSid, err)
	}
	return &resp, nil
}

func companyName(sess *session.CallSession) string {
	if sess.Company != nil {
		return sess.Company.BusinessName
	}
	return ""
}

// post sends one JSON request with the shared retry budget. Connection
// failures, timeouts and non-2xx statuses are all retried uniformly.
func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Base().Warn("retrying AI service request",
				zap.String("path", path), zap.Int("attempt", attempt+1), zap.Error(lastErr))
		}

		lastErr = c.doOnce(ctx, url, body, out)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return fmt.Errorf("ai service request failed after %d attempts: %w", MaxRetries+1, lastErr)
}

func (c *Client) doOnce(ctx context.Context, url string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.secret != "" {
		token, err := c.serviceToken()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		bodyBytes, _ := io.ReadAll(resp.Body)
		logger.Base().Error("AI service error",
			zap.String("url", url),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(bodyBytes)))
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// serviceToken signs a short-lived HS256 token identifying this service.
func (c *Client) serviceToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "parlo-call-service",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(c.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}
