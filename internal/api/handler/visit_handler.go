package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pageguard/visitauth/internal/api/metrics"
	"github.com/pageguard/visitauth/internal/api/middleware"
	"github.com/pageguard/visitauth/internal/core/domain"
	"github.com/pageguard/visitauth/internal/core/ports"
)

// VisitHandler handles tracked pages, visit confirmation, and stats.
type VisitHandler struct {
	visits ports.VisitService
	log    zerolog.Logger
}

func NewVisitHandler(visits ports.VisitService, log zerolog.Logger) *VisitHandler {
	return &VisitHandler{visits: visits, log: log}
}

// flashMessages is the transient one-shot feedback shown after a redirect.
type flashMessages struct {
	Error   string `json:"error,omitempty"`
	Info    string `json:"info,omitempty"`
	Success string `json:"success,omitempty"`
}

type pageResponse struct {
	Path             string        `json:"path"`
	Authenticated    bool          `json:"authenticated"`
	UserName         string        `json:"user_name,omitempty"`
	ConfirmationCode string        `json:"confirmation_code,omitempty"`
	Flash            flashMessages `json:"flash,omitempty"`
}

type statsResponse struct {
	Stats []domain.PathStats `json:"stats"`
}

// Page serves a tracked page: it records the visit (best-effort) and hands
// the pending confirmation code back for the client to display.
//
// @Summary      Tracked page view
// @Tags         visits
// @Produce      json
// @Success      200  {object}  pageResponse
// @Router       / [get]
func (h *VisitHandler) Page(c echo.Context) error {
	ctx := c.Request().Context()
	sess := middleware.SessionFrom(c)

	login := ""
	userName := ""
	if p, ok := middleware.PrincipalFrom(c); ok {
		login = p.Login
		userName = p.Name
	}

	code := h.visits.Track(ctx, sess, ports.TrackVisitInput{
		Path:       c.Request().URL.Path,
		Login:      login,
		UserAgent:  c.Request().UserAgent(),
		ClientAddr: c.RealIP(),
	})
	if code == "" {
		metrics.VisitTrackingFailuresTotal.Inc()
	} else {
		metrics.VisitsTrackedTotal.WithLabelValues(c.Request().URL.Path).Inc()
	}

	return c.JSON(http.StatusOK, pageResponse{
		Path:             c.Request().URL.Path,
		Authenticated:    login != "",
		UserName:         userName,
		ConfirmationCode: code,
		Flash:            h.takeFlash(ctx, sess),
	})
}

// Confirm handles the confirmation form post. The outcome is reported via a
// redirect carrying a transient flash message, never a JSON error body.
//
// @Summary      Confirm a tracked visit
// @Tags         visits
// @Accept       x-www-form-urlencoded
// @Param        confirmationCode  formData  string  true  "Code shown on the tracked page"
// @Success      302
// @Router       /visits/confirm [post]
func (h *VisitHandler) Confirm(c echo.Context) error {
	ctx := c.Request().Context()
	sess := middleware.SessionFrom(c)

	outcome, err := h.visits.Confirm(ctx, sess, c.FormValue("confirmationCode"))

	var flashKey, flashMsg, metricOutcome string
	switch {
	case errors.Is(err, domain.ErrEmptyCode):
		flashKey, flashMsg, metricOutcome = ports.SessionKeyFlashError, "confirmation code cannot be empty", "empty_code"
	case errors.Is(err, domain.ErrSessionExpired):
		flashKey, flashMsg, metricOutcome = ports.SessionKeyFlashError, "session expired, refresh the page and try again", "session_expired"
	case errors.Is(err, domain.ErrInvalidCode):
		flashKey, flashMsg, metricOutcome = ports.SessionKeyFlashError, "invalid confirmation code", "invalid_code"
	case err != nil:
		h.log.Error().Err(err).Msg("visit confirmation failed")
		flashKey, flashMsg, metricOutcome = ports.SessionKeyFlashError, "could not confirm the visit, try again later", "error"
	case outcome == ports.ConfirmOutcomeAlready:
		flashKey, flashMsg, metricOutcome = ports.SessionKeyFlashInfo, "this visit was already confirmed", "already_confirmed"
	default:
		flashKey, flashMsg, metricOutcome = ports.SessionKeyFlashSuccess, "visit confirmed", "confirmed"
	}

	metrics.ConfirmationsTotal.WithLabelValues(metricOutcome).Inc()
	if err := sess.SetString(ctx, flashKey, flashMsg); err != nil {
		h.log.Warn().Err(err).Msg("failed to store flash message")
	}

	return c.Redirect(http.StatusFound, "/")
}

// Stats serves the read-only per-path aggregation.
//
// @Summary      Visit statistics grouped by path
// @Tags         visits
// @Produce      json
// @Success      200  {object}  statsResponse
// @Router       /visits/stats [get]
func (h *VisitHandler) Stats(c echo.Context) error {
	stats, err := h.visits.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statsResponse{Stats: stats})
}

// takeFlash reads and clears any pending flash messages. Read-and-remove
// keeps them one-shot.
func (h *VisitHandler) takeFlash(ctx context.Context, sess ports.Session) flashMessages {
	var flash flashMessages
	for _, f := range []struct {
		key    string
		target *string
	}{
		{ports.SessionKeyFlashError, &flash.Error},
		{ports.SessionKeyFlashInfo, &flash.Info},
		{ports.SessionKeyFlashSuccess, &flash.Success},
	} {
		msg, err := sess.GetString(ctx, f.key)
		if err != nil {
			continue
		}
		*f.target = msg
		if err := sess.Remove(ctx, f.key); err != nil {
			h.log.Warn().Err(err).Str("key", f.key).Msg("failed to clear flash message")
		}
	}
	return flash
}
