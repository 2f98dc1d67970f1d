package telephony

import (
	"fmt"
	"strings"

	"github.com/ParloAI/parlo-call-service/internal/session"
)

// Spoken-text helpers for the voice webhooks. All of them are stateless free
// functions producing the exact utterances the caller hears.

const (
	// UserNotFoundMessage is spoken when the dialed number is not bound to
	// any registered business. The call keeps listening rather than hanging
	// up so the caller can still leave a message.
	UserNotFoundMessage = "Thank you for calling. We could not find a business registered at this number, but I'm happy to take a message. How can I help you?"

	// NoSpeechMessage is spoken when a gather webhook arrives without any
	// recognized speech.
	NoSpeechMessage = "I'm sorry, I didn't catch that. Could you please say it again?"

	// AIErrorMessage replaces the AI reply when the conversation engine is
	// unreachable. The call continues listening instead of dropping.
	AIErrorMessage = "I'm sorry, I'm having a little trouble right now. Could you please repeat that?"
)

// WelcomeMessage composes the greeting spoken at call start. A custom
// greeting configured on the company wins; otherwise a default greeting is
// built from the business name and its bookable services.
func WelcomeMessage(company *session.CompanyRef, greeting string, services []session.ServiceSummary) string {
	if strings.TrimSpace(greeting) != "" {
		return greeting
	}

	name := "our business"
	if company != nil && company.BusinessName != "" {
		name = company.BusinessName
	}

	if len(services) == 0 {
		return fmt.Sprintf("Thank you for calling %s. How can I help you today?", name)
	}

	names := make([]string, 0, len(services))
	for _, svc := range services {
		names = append(names, svc.Name)
	}
	return fmt.Sprintf("Thank you for calling %s. We offer %s. How can I help you today?",
		name, joinList(names))
}

// joinList renders "a", "a and b", or "a, b and c".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
