package ports

import (
	"context"

	"github.com/pageguard/visitauth/internal/core/domain"
)

// TrackVisitInput carries the request metadata recorded with a visit.
type TrackVisitInput struct {
	Path       string
	Login      string // empty for anonymous requests
	UserAgent  string
	ClientAddr string
}

// ConfirmOutcome distinguishes a fresh confirmation from an idempotent replay.
type ConfirmOutcome string

const (
	ConfirmOutcomeConfirmed ConfirmOutcome = "confirmed"
	ConfirmOutcomeAlready   ConfirmOutcome = "already_confirmed"
)

type VisitService interface {
	// Track records a visit and stashes its id and confirmation code in the
	// session. Best-effort: failures are logged and swallowed, and the empty
	// string is returned, so tracking can never abort a page response.
	Track(ctx context.Context, sess Session, in TrackVisitInput) string

	// Confirm validates the submitted code against the pending visit held in
	// the session and performs the Created→Confirmed transition.
	Confirm(ctx context.Context, sess Session, submittedCode string) (ConfirmOutcome, error)

	Stats(ctx context.Context) ([]domain.PathStats, error)
}
