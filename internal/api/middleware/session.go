package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pageguard/visitauth/internal/core/domain"
	"github.com/pageguard/visitauth/internal/core/ports"
)

const (
	sessionCookie = "visitauth_sid"
	logoutParam   = "logout"

	sessionContextKey   = "session"
	principalContextKey = "principal"
)

// SessionOpener returns the key-value session view for an opaque session id.
type SessionOpener func(id string) ports.Session

// Session attaches a per-client session to the request context, issuing an
// opaque session cookie when the client does not present one. The session id
// itself carries no identity; everything lives server-side.
func Session(open SessionOpener) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if cookie, err := c.Cookie(sessionCookie); err == nil {
				id = cookie.Value
			}
			if id == "" {
				id = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     sessionCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(sessionContextKey, open(id))
			return next(c)
		}
	}
}

// Identity is the single source of truth for request identity. It runs before
// every handler:
//
//  1. A ?logout query parameter clears the stored sign-in blob and redirects
//     back to the same path without the parameter; the handler never runs.
//  2. Otherwise, a principal serialized in the session populates the request
//     identity. A corrupt blob degrades to anonymous, never to a failure.
//  3. Otherwise the request proceeds anonymous.
func Identity(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := SessionFrom(c)
			if sess == nil {
				return next(c)
			}
			ctx := c.Request().Context()

			if c.QueryParams().Has(logoutParam) {
				if err := sess.Remove(ctx, ports.SessionKeySignIn); err != nil {
					log.Warn().Err(err).Msg("failed to clear sign-in state on logout")
				}
				return c.Redirect(http.StatusFound, logoutTarget(c))
			}

			raw, err := sess.GetString(ctx, ports.SessionKeySignIn)
			switch {
			case errors.Is(err, domain.ErrSessionKeyMissing):
				// anonymous
			case err != nil:
				log.Warn().Err(err).Msg("session read failed, proceeding anonymous")
			default:
				var p domain.Principal
				if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr != nil || p.UserID == "" {
					log.Warn().Msg("corrupt sign-in blob in session, proceeding anonymous")
				} else {
					c.Set(principalContextKey, &p)
				}
			}

			return next(c)
		}
	}
}

// logoutTarget rebuilds the request URL with the logout parameter stripped so
// the redirect cannot loop.
func logoutTarget(c echo.Context) string {
	q := c.Request().URL.Query()
	q.Del(logoutParam)
	target := c.Request().URL.Path
	if enc := q.Encode(); enc != "" {
		target += "?" + enc
	}
	return target
}

// SessionFrom returns the session attached by the Session middleware, or nil.
func SessionFrom(c echo.Context) ports.Session {
	sess, _ := c.Get(sessionContextKey).(ports.Session)
	return sess
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(c echo.Context) (*domain.Principal, bool) {
	p, ok := c.Get(principalContextKey).(*domain.Principal)
	return p, ok && p != nil
}
