package telephony

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCallStatus(t *testing.T) {
	for _, raw := range []string{"queued", "ringing", "in-progress", "completed", "busy", "failed", "no-answer"} {
		status, ok := ParseCallStatus(raw)
		assert.True(t, ok, "expected %q to be a known status", raw)
		assert.Equal(t, CallStatus(raw), status)
	}

	for _, raw := range []string{"", "canceled", "COMPLETED", "in_progress", "answered"} {
		_, ok := ParseCallStatus(raw)
		assert.False(t, ok, "expected %q to be rejected", raw)
	}
}

func TestCallStatusIsFinal(t *testing.T) {
	finals := []CallStatus{StatusCompleted, StatusBusy, StatusFailed, StatusNoAnswer}
	for _, status := range finals {
		assert.True(t, status.IsFinal(), "expected %q to be final", status)
	}

	nonFinals := []CallStatus{StatusQueued, StatusRinging, StatusInProgress}
	for _, status := range nonFinals {
		assert.False(t, status.IsFinal(), "expected %q to be non-final", status)
	}
}
