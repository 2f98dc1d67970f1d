package session

import (
	"time"
)

// SessionTTL bounds how long an untouched call session survives in Redis.
// A session older than this is treated as "call abandoned", not an error.
const SessionTTL = 30 * time.Minute

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerAI       Speaker = "AI"
	SpeakerCustomer Speaker = "customer"
)

// Turn is a single conversation turn. History is append-only for the life of
// the session and its order is the conversation's true order.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Message   string    `json:"message"`
	StartedAt time.Time `json:"startedAt"`
}

// ServiceSummary is an immutable snapshot of one bookable service, taken at
// call start.
type ServiceSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// CompanyRef is the callee's business association, set once early in the call.
type CompanyRef struct {
	ID           string `json:"id"`
	BusinessName string `json:"businessName"`
	Email        string `json:"email"`
	UserID       string `json:"userId"`
}

// CallerInfo holds caller identity collected during the conversation.
type CallerInfo struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
}

// UserSlots are the mutable slots filled in as the conversation progresses:
// service selection, scheduling, caller identity.
type UserSlots struct {
	Service           *ServiceSummary `json:"service,omitempty"`
	ServiceBookedTime *time.Time      `json:"serviceBookedTime,omitempty"`
	UserInfo          *CallerInfo     `json:"userInfo,omitempty"`
}

// CallSession is the transient state of one live call, keyed by the
// provider-issued call SID. It lives in Redis with a refreshed TTL and is
// deleted exactly once by the completion pipeline.
type CallSession struct {
	CallSid      string           `json:"callSid"`
	Services     []ServiceSummary `json:"services"`
	Company      *CompanyRef      `json:"company,omitempty"`
	CallerNumber string           `json:"callerNumber,omitempty"`
	CallStartAt  time.Time        `json:"callStartAt"`
	User         UserSlots        `json:"user"`
	History      []Turn           `json:"history"`
	Intent       string           `json:"intent,omitempty"`

	// IntentClassified means the upstream AI service classified the caller's
	// intent mid-call and already created the call-log record out of band.
	// The completion pipeline must not create a second one.
	IntentClassified bool `json:"intentClassified"`

	// Monotonic flags, flipped true at most once and never reset.
	ConfirmBooking   bool `json:"confirmBooking"`
	ConfirmEmailSent bool `json:"confirmEmailSent"`
}

// CallerName returns the caller's collected name, or a stable placeholder
// when identity was never captured.
func (s *CallSession) CallerName() string {
	if s.User.UserInfo != nil && s.User.UserInfo.Name != "" {
		return s.User.UserInfo.Name
	}
	return "Unknown Caller"
}

// BookedServiceName returns the selected service name, if any.
func (s *CallSession) BookedServiceName() string {
	if s.User.Service != nil {
		return s.User.Service.Name
	}
	return ""
}
