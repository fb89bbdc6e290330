// Package domain holds the customer status model and the pure decision
// logic that maps call outcomes onto it. Nothing in this package touches
// storage or the network, which keeps the state machine unit-testable.
package domain

import "strings"

// Status is the customer lifecycle status. The numeric values are part of
// the storage contract (the fn_* functions take and return them) and must
// not be reordered.
type Status int

const (
	StatusNew Status = iota
	StatusCalling
	StatusBooked
	StatusFailed
	StatusContacted
	StatusNoAnswer
)

var statusNames = map[Status]string{
	StatusNew:       "New",
	StatusCalling:   "Calling",
	StatusBooked:    "Booked",
	StatusFailed:    "Failed",
	StatusContacted: "Contacted",
	StatusNoAnswer:  "NoAnswer",
}

// String returns the display name of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// CallOutcome is the subset of a call-analysis payload the status decision
// depends on.
type CallOutcome struct {
	Successful       bool
	DisconnectReason string
}

// DecideStatus maps a completed call's outcome onto the target customer
// status, given the customer's current status. It is total: unrecognized
// disconnect reasons map to Failed, and the second return value reports
// whether the reason was recognized so callers can log the unhandled case.
//
// A successful call never demotes an already-Booked customer.
func DecideStatus(current Status, outcome CallOutcome) (Status, bool) {
	if outcome.Successful {
		if current == StatusBooked {
			return StatusBooked, true
		}
		return StatusContacted, true
	}

	switch strings.ToLower(strings.TrimSpace(outcome.DisconnectReason)) {
	case "user_hangup", "agent_hangup":
		return StatusContacted, true
	case "call_failed", "invalid_phone_number":
		return StatusFailed, true
	case "user_not_answered", "no_answer", "user_busy":
		return StatusNoAnswer, true
	default:
		return StatusFailed, false
	}
}
