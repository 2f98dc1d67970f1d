package telephony

// CallStatus is the provider-reported lifecycle state of a call. The set is a
// closed whitelist: anything the provider sends outside it is logged and
// ignored rather than processed, so a payload change upstream cannot be
// silently mis-handled here.
type CallStatus string

const (
	StatusQueued     CallStatus = "queued"
	StatusRinging    CallStatus = "ringing"
	StatusInProgress CallStatus = "in-progress"
	StatusCompleted  CallStatus = "completed"
	StatusBusy       CallStatus = "busy"
	StatusFailed     CallStatus = "failed"
	StatusNoAnswer   CallStatus = "no-answer"
)

// callStatuses maps every known status to whether it is final. Membership in
// this map is the whitelist; the value is the final/non-final classification.
var callStatuses = map[CallStatus]bool{
	StatusQueued:     false,
	StatusRinging:    false,
	StatusInProgress: false,
	StatusCompleted:  true,
	StatusBusy:       true,
	StatusFailed:     true,
	StatusNoAnswer:   true,
}

// ParseCallStatus validates a raw webhook status against the whitelist.
func ParseCallStatus(raw string) (CallStatus, bool) {
	status := CallStatus(raw)
	_, ok := callStatuses[status]
	return status, ok
}

// IsFinal reports whether the status terminates the call. Final statuses
// trigger the completion pipeline; non-final ones are log-only.
func (s CallStatus) IsFinal() bool {
	return callStatuses[s]
}
