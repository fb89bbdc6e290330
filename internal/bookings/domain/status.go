// Package domain holds the booking status model and the mapping from
// external scheduler statuses onto it.
package domain

import "strings"

// Status is the booking lifecycle status. The numeric values are part of
// the storage contract and must not be reordered.
type Status int

const (
	StatusPending Status = iota
	StatusConfirmed
	StatusCancelled
)

var statusNames = map[Status]string{
	StatusPending:   "Pending",
	StatusConfirmed: "Confirmed",
	StatusCancelled: "Cancelled",
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

// MapProviderStatus maps the scheduling provider's status string onto the
// internal status. It is total: unknown provider statuses map to Pending,
// and the second return value reports whether the status was recognized so
// callers can log the unhandled case.
func MapProviderStatus(provider string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "accepted", "upcoming", "recurring", "past":
		return StatusConfirmed, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	case "pending", "unconfirmed":
		return StatusPending, true
	default:
		return StatusPending, false
	}
}
