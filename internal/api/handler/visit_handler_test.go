package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pageguard/visitauth/internal/api/middleware"
	"github.com/pageguard/visitauth/internal/core/domain"
	"github.com/pageguard/visitauth/internal/core/ports"
)

type stubVisitService struct {
	trackCode      string
	confirmOutcome ports.ConfirmOutcome
	confirmErr     error
	stats          []domain.PathStats
	statsErr       error
	gotTrack       ports.TrackVisitInput
	gotCode        string
}

func (s *stubVisitService) Track(_ context.Context, _ ports.Session, in ports.TrackVisitInput) string {
	s.gotTrack = in
	return s.trackCode
}

func (s *stubVisitService) Confirm(_ context.Context, _ ports.Session, code string) (ports.ConfirmOutcome, error) {
	s.gotCode = code
	return s.confirmOutcome, s.confirmErr
}

func (s *stubVisitService) Stats(_ context.Context) ([]domain.PathStats, error) {
	return s.stats, s.statsErr
}

func newVisitContext(t *testing.T, req *http.Request, sess ports.Session) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	mw := middleware.Session(func(string) ports.Session { return sess })
	if err := mw(func(echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("failed to attach session: %v", err)
	}
	return c, rec
}

func decodePage(t *testing.T, rec *httptest.ResponseRecorder) pageResponse {
	t.Helper()
	var resp pageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestPage_TracksAnonymousVisit(t *testing.T) {
	svc := &stubVisitService{trackCode: "AB12CD"}
	req := httptest.NewRequest(http.MethodGet, "/privacy", nil)
	req.Header.Set("User-Agent", "test-agent")
	c, rec := newVisitContext(t, req, newMemSession())

	if err := NewVisitHandler(svc, zerolog.Nop()).Page(c); err != nil {
		t.Fatalf("Page returned error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodePage(t, rec)
	if resp.Path != "/privacy" || resp.Authenticated || resp.UserName != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ConfirmationCode != "AB12CD" {
		t.Fatalf("expected confirmation code in response, got %q", resp.ConfirmationCode)
	}
	if svc.gotTrack.Path != "/privacy" || svc.gotTrack.Login != "" || svc.gotTrack.UserAgent != "test-agent" {
		t.Fatalf("unexpected track input: %+v", svc.gotTrack)
	}
}

func TestPage_CarriesPrincipal(t *testing.T) {
	svc := &stubVisitService{trackCode: "AB12CD"}
	sess := newMemSession()
	blob, _ := json.Marshal(domain.Principal{UserID: "u1", Login: "alice", Name: "Alice"})
	_ = sess.SetString(context.Background(), ports.SessionKeySignIn, string(blob))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	chain := middleware.Session(func(string) ports.Session { return sess })(
		middleware.Identity(zerolog.Nop())(NewVisitHandler(svc, zerolog.Nop()).Page))
	if err := chain(c); err != nil {
		t.Fatalf("handler chain returned error: %v", err)
	}

	resp := decodePage(t, rec)
	if !resp.Authenticated || resp.UserName != "Alice" {
		t.Fatalf("expected authenticated page for Alice, got %+v", resp)
	}
	if svc.gotTrack.Login != "alice" {
		t.Fatalf("login not forwarded to tracking: %+v", svc.gotTrack)
	}
}

func TestPage_TrackingFailureStillServes(t *testing.T) {
	svc := &stubVisitService{trackCode: ""}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c, rec := newVisitContext(t, req, newMemSession())

	if err := NewVisitHandler(svc, zerolog.Nop()).Page(c); err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("tracking failure must not break the page, got %d", rec.Code)
	}
	if resp := decodePage(t, rec); resp.ConfirmationCode != "" {
		t.Fatalf("expected no confirmation code, got %q", resp.ConfirmationCode)
	}
}

func TestPage_FlashIsOneShot(t *testing.T) {
	svc := &stubVisitService{trackCode: "AB12CD"}
	sess := newMemSession()
	_ = sess.SetString(context.Background(), ports.SessionKeyFlashSuccess, "visit confirmed")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c, rec := newVisitContext(t, req, sess)
	h := NewVisitHandler(svc, zerolog.Nop())

	if err := h.Page(c); err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if resp := decodePage(t, rec); resp.Flash.Success != "visit confirmed" {
		t.Fatalf("expected flash message, got %+v", resp.Flash)
	}

	// Second render must not repeat the message.
	c, rec = newVisitContext(t, httptest.NewRequest(http.MethodGet, "/", nil), sess)
	if err := h.Page(c); err != nil {
		t.Fatalf("Page returned error: %v", err)
	}
	if resp := decodePage(t, rec); resp.Flash.Success != "" {
		t.Fatalf("flash message must be one-shot, got %+v", resp.Flash)
	}
}

func postConfirm(t *testing.T, code string, sess ports.Session) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	form := url.Values{"confirmationCode": {code}}
	req := httptest.NewRequest(http.MethodPost, "/visits/confirm", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return newVisitContext(t, req, sess)
}

func TestConfirm_RedirectsWithFlash(t *testing.T) {
	cases := []struct {
		name     string
		outcome  ports.ConfirmOutcome
		err      error
		flashKey string
		message  string
	}{
		{"confirmed", ports.ConfirmOutcomeConfirmed, nil, ports.SessionKeyFlashSuccess, "visit confirmed"},
		{"already confirmed", ports.ConfirmOutcomeAlready, nil, ports.SessionKeyFlashInfo, "this visit was already confirmed"},
		{"empty code", "", domain.ErrEmptyCode, ports.SessionKeyFlashError, "confirmation code cannot be empty"},
		{"session expired", "", domain.ErrSessionExpired, ports.SessionKeyFlashError, "session expired, refresh the page and try again"},
		{"invalid code", "", domain.ErrInvalidCode, ports.SessionKeyFlashError, "invalid confirmation code"},
		{"storage failure", "", context.DeadlineExceeded, ports.SessionKeyFlashError, "could not confirm the visit, try again later"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubVisitService{confirmOutcome: tc.outcome, confirmErr: tc.err}
			sess := newMemSession()
			c, rec := postConfirm(t, "AB12CD", sess)

			if err := NewVisitHandler(svc, zerolog.Nop()).Confirm(c); err != nil {
				t.Fatalf("Confirm returned error: %v", err)
			}
			if rec.Code != http.StatusFound {
				t.Fatalf("expected 302, got %d", rec.Code)
			}
			if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
				t.Fatalf("expected redirect to /, got %q", loc)
			}
			msg, err := sess.GetString(context.Background(), tc.flashKey)
			if err != nil {
				t.Fatalf("flash message not stored under %q: %v", tc.flashKey, err)
			}
			if msg != tc.message {
				t.Fatalf("expected flash %q, got %q", tc.message, msg)
			}
		})
	}
}

func TestConfirm_ForwardsSubmittedCode(t *testing.T) {
	svc := &stubVisitService{confirmOutcome: ports.ConfirmOutcomeConfirmed}
	c, _ := postConfirm(t, "XY98ZW", newMemSession())

	if err := NewVisitHandler(svc, zerolog.Nop()).Confirm(c); err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if svc.gotCode != "XY98ZW" {
		t.Fatalf("submitted code not forwarded, got %q", svc.gotCode)
	}
}

func TestStats(t *testing.T) {
	last := time.Date(2025, 8, 30, 9, 0, 0, 0, time.UTC)
	svc := &stubVisitService{stats: []domain.PathStats{
		{Path: "/", TotalVisits: 12, ConfirmedVisits: 5, LastVisit: last},
		{Path: "/privacy", TotalVisits: 3, ConfirmedVisits: 0, LastVisit: last},
	}}
	req := httptest.NewRequest(http.MethodGet, "/visits/stats", nil)
	c, rec := newVisitContext(t, req, newMemSession())

	if err := NewVisitHandler(svc, zerolog.Nop()).Stats(c); err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp statsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Stats) != 2 || resp.Stats[0].Path != "/" || resp.Stats[0].TotalVisits != 12 {
		t.Fatalf("unexpected stats: %+v", resp.Stats)
	}
}

func TestStats_StorageFailure(t *testing.T) {
	svc := &stubVisitService{statsErr: context.DeadlineExceeded}
	req := httptest.NewRequest(http.MethodGet, "/visits/stats", nil)
	c, _ := newVisitContext(t, req, newMemSession())

	if err := NewVisitHandler(svc, zerolog.Nop()).Stats(c); err == nil {
		t.Fatalf("expected error to propagate to the error handler")
	}
}
