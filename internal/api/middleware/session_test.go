package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pageguard/visitauth/internal/core/domain"
	"github.com/pageguard/visitauth/internal/core/ports"
)

type memSession struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemSession() *memSession {
	return &memSession{values: make(map[string]string)}
}

func (s *memSession) GetString(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", domain.ErrSessionKeyMissing
	}
	return v, nil
}

func (s *memSession) SetString(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memSession) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memSession) ContainsKey(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok, nil
}

func run(t *testing.T, sess ports.Session, target string, inner echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	chain := Session(func(string) ports.Session { return sess })(Identity(zerolog.Nop())(inner))
	if err := chain(c); err != nil {
		t.Fatalf("middleware chain returned error: %v", err)
	}
	return rec
}

func TestSession_IssuesCookie(t *testing.T) {
	opened := ""
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Session(func(id string) ports.Session {
		opened = id
		return newMemSession()
	})
	if err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}

	if opened == "" {
		t.Fatalf("expected a session id to be generated")
	}
	cookie := rec.Result().Cookies()
	if len(cookie) != 1 || cookie[0].Name != sessionCookie || cookie[0].Value != opened {
		t.Fatalf("expected session cookie for %q, got %+v", opened, cookie)
	}
	if !cookie[0].HttpOnly {
		t.Fatalf("session cookie must be http-only")
	}
}

func TestSession_ReusesCookie(t *testing.T) {
	opened := ""
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "existing-id"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Session(func(id string) ports.Session {
		opened = id
		return newMemSession()
	})
	if err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	if opened != "existing-id" {
		t.Fatalf("expected existing session id to be reused, got %q", opened)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no new cookie should be issued for a returning client")
	}
}

func TestIdentity_PopulatesPrincipal(t *testing.T) {
	sess := newMemSession()
	blob, _ := json.Marshal(domain.Principal{
		UserID: "u1", Login: "alice", Name: "Alice", Email: "alice@example.com", Role: domain.RoleGuest,
	})
	_ = sess.SetString(context.Background(), ports.SessionKeySignIn, string(blob))

	var got *domain.Principal
	run(t, sess, "/", func(c echo.Context) error {
		got, _ = PrincipalFrom(c)
		return c.NoContent(http.StatusOK)
	})

	if got == nil || got.Name != "Alice" || got.Email != "alice@example.com" || got.UserID != "u1" {
		t.Fatalf("unexpected principal: %+v", got)
	}
}

func TestIdentity_AnonymousWithoutSignIn(t *testing.T) {
	var ok bool
	run(t, newMemSession(), "/", func(c echo.Context) error {
		_, ok = PrincipalFrom(c)
		return c.NoContent(http.StatusOK)
	})
	if ok {
		t.Fatalf("expected anonymous context")
	}
}

// A corrupt or stale sign-in blob must degrade to anonymous, even though the
// session key still physically exists.
func TestIdentity_CorruptBlobIsAnonymous(t *testing.T) {
	for _, blob := range []string{"{not json", `{"login":"alice"}`, ""} {
		sess := newMemSession()
		_ = sess.SetString(context.Background(), ports.SessionKeySignIn, blob)

		var ok bool
		run(t, sess, "/", func(c echo.Context) error {
			_, ok = PrincipalFrom(c)
			return c.NoContent(http.StatusOK)
		})
		if ok {
			t.Fatalf("blob %q must yield an anonymous context", blob)
		}
	}
}

func TestIdentity_LogoutClearsAndRedirects(t *testing.T) {
	sess := newMemSession()
	_ = sess.SetString(context.Background(), ports.SessionKeySignIn, "whatever")

	handlerRan := false
	rec := run(t, sess, "/privacy?logout", func(c echo.Context) error {
		handlerRan = true
		return c.NoContent(http.StatusOK)
	})

	if handlerRan {
		t.Fatalf("handler must not run for a logout request")
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/privacy" {
		t.Fatalf("expected redirect to /privacy, got %q", loc)
	}
	if ok, _ := sess.ContainsKey(context.Background(), ports.SessionKeySignIn); ok {
		t.Fatalf("logout must clear the sign-in state")
	}
}

func TestIdentity_LogoutKeepsOtherQueryParams(t *testing.T) {
	rec := run(t, newMemSession(), "/?logout=1&tab=stats", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/?tab=stats" {
		t.Fatalf("expected logout param stripped, got %q", loc)
	}
}

// After logout, a subsequent request must be anonymous even if other session
// keys still hold stale data.
func TestIdentity_AnonymousAfterLogout(t *testing.T) {
	sess := newMemSession()
	blob, _ := json.Marshal(domain.Principal{UserID: "u1", Login: "alice", Name: "Alice"})
	_ = sess.SetString(context.Background(), ports.SessionKeySignIn, string(blob))
	_ = sess.SetString(context.Background(), ports.SessionKeyVisitID, "stale-visit")

	run(t, sess, "/?logout", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	var ok bool
	run(t, sess, "/", func(c echo.Context) error {
		_, ok = PrincipalFrom(c)
		return c.NoContent(http.StatusOK)
	})
	if ok {
		t.Fatalf("expected anonymous context after logout")
	}
}
