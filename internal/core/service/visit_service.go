package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pageguard/visitauth/internal/core/domain"
	"github.com/pageguard/visitauth/internal/core/ports"
	"github.com/pageguard/visitauth/internal/pkg/confirmcode"
)

// VisitService drives the visit confirmation state machine.
type VisitService struct {
	visits ports.VisitRepository
	codes  *confirmcode.Generator
	log    zerolog.Logger
}

func NewVisitService(visits ports.VisitRepository, codes *confirmcode.Generator, log zerolog.Logger) *VisitService {
	return &VisitService{visits: visits, codes: codes, log: log}
}

// Track records a visit for the request and stores the pending visit id and
// confirmation code in the session. Tracking is side-channel to the page
// response: every failure is logged and swallowed, and "" is returned.
func (s *VisitService) Track(ctx context.Context, sess ports.Session, in ports.TrackVisitInput) string {
	code, err := s.codes.Generate()
	if err != nil {
		s.log.Error().Err(err).Str("path", in.Path).Msg("confirmation code generation failed")
		return ""
	}

	visit := &domain.Visit{
		ID:               uuid.NewString(),
		VisitTime:        time.Now().UTC(),
		RequestPath:      in.Path,
		UserLogin:        in.Login,
		ConfirmationCode: code,
		UserAgent:        in.UserAgent,
		ClientAddr:       in.ClientAddr,
	}

	if err := s.visits.Create(ctx, visit); err != nil {
		s.log.Error().Err(err).Str("path", in.Path).Msg("visit tracking failed")
		return ""
	}

	if err := sess.SetString(ctx, ports.SessionKeyVisitID, visit.ID); err != nil {
		s.log.Error().Err(err).Str("visit_id", visit.ID).Msg("failed to store pending visit in session")
		return ""
	}
	if err := sess.SetString(ctx, ports.SessionKeyCode, code); err != nil {
		s.log.Error().Err(err).Str("visit_id", visit.ID).Msg("failed to store confirmation code in session")
		return ""
	}

	s.log.Debug().Str("visit_id", visit.ID).Str("path", in.Path).Msg("visit tracked")
	return code
}

// Confirm validates the submitted code against the pending visit held in the
// session and applies the Created→Confirmed transition. The wrong-code and
// visit-not-found cases collapse into domain.ErrInvalidCode.
func (s *VisitService) Confirm(ctx context.Context, sess ports.Session, submitted string) (ports.ConfirmOutcome, error) {
	if submitted == "" {
		return "", domain.ErrEmptyCode
	}

	visitID, err := sess.GetString(ctx, ports.SessionKeyVisitID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionKeyMissing) {
			return "", domain.ErrSessionExpired
		}
		return "", err
	}
	if visitID == "" {
		return "", domain.ErrSessionExpired
	}

	// Syntactically impossible codes cannot match any stored one.
	if !confirmcode.IsValid(submitted) {
		return "", domain.ErrInvalidCode
	}

	visit, err := s.visits.Confirm(ctx, visitID, submitted, time.Now().UTC())
	switch {
	case errors.Is(err, domain.ErrVisitNotFound):
		return "", domain.ErrInvalidCode
	case errors.Is(err, domain.ErrAlreadyConfirmed):
		return ports.ConfirmOutcomeAlready, nil
	case err != nil:
		s.log.Error().Err(err).Str("visit_id", visitID).Msg("visit confirmation failed")
		return "", err
	}

	if err := sess.Remove(ctx, ports.SessionKeyCode); err != nil {
		s.log.Warn().Err(err).Str("visit_id", visitID).Msg("failed to clear confirmation code from session")
	}
	if err := sess.Remove(ctx, ports.SessionKeyVisitID); err != nil {
		s.log.Warn().Err(err).Str("visit_id", visitID).Msg("failed to clear pending visit from session")
	}

	s.log.Info().Str("visit_id", visit.ID).Str("path", visit.RequestPath).Msg("visit confirmed")
	return ports.ConfirmOutcomeConfirmed, nil
}

// Stats returns the read-only per-path aggregation. Pure projection, no
// state change.
func (s *VisitService) Stats(ctx context.Context) ([]domain.PathStats, error) {
	stats, err := s.visits.StatsByPath(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("visit stats query failed")
		return nil, err
	}
	return stats, nil
}
