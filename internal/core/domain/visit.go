package domain

import (
	"errors"
	"time"
)

// VisitStatus represents the lifecycle state of a tracked visit.
type VisitStatus string

const (
	VisitCreated   VisitStatus = "created"
	VisitConfirmed VisitStatus = "confirmed"
)

// validTransitions defines the allowed state machine transitions. A visit
// that is never confirmed stays in VisitCreated forever; there is no expiry
// state.
var validTransitions = map[VisitStatus][]VisitStatus{
	VisitCreated: {VisitConfirmed},
}

var (
	ErrVisitNotFound    = errors.New("visit not found")
	ErrAlreadyConfirmed = errors.New("visit already confirmed")
	ErrEmptyCode        = errors.New("confirmation code cannot be empty")
	ErrSessionExpired   = errors.New("session expired")
	ErrInvalidCode      = errors.New("invalid confirmation code")
)

// CanTransitionTo reports whether a transition from the current status to next is valid.
func (s VisitStatus) CanTransitionTo(next VisitStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Visit records a single tracked page request. It is mutated exactly once,
// by the Created→Confirmed transition; the core never deletes visits.
type Visit struct {
	ID               string
	VisitTime        time.Time
	RequestPath      string
	UserLogin        string // empty when the request was anonymous
	ConfirmationCode string
	IsConfirmed      bool
	ConfirmedAt      *time.Time
	UserAgent        string
	ClientAddr       string
}

// Status derives the lifecycle state from the confirmed flag.
func (v *Visit) Status() VisitStatus {
	if v.IsConfirmed {
		return VisitConfirmed
	}
	return VisitCreated
}

// PathStats is one row of the per-path visit aggregation.
type PathStats struct {
	Path            string    `json:"path"`
	TotalVisits     int64     `json:"total_visits"`
	ConfirmedVisits int64     `json:"confirmed_visits"`
	LastVisit       time.Time `json:"last_visit"`
}
