package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"infocomp/internal/db"
)

const cookieName = "infocomp_session"

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, *db.DB, int64) {
	t.Helper()
	d, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	uid, err := d.CreateUser(context.Background(), "a@b.com", "hash", true)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	store := NewStore(d, []byte("0123456789abcdef0123456789abcdef"), ttl, sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return &Manager{Store: store, Name: cookieName, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, d, uid
}

// sessionCookie returns the cookie set on rec, or nil.
func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	return nil
}

func requestWith(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func TestEstablishCurrentDestroy(t *testing.T) {
	m, d, uid := newTestManager(t, time.Hour)

	if info := m.Current(requestWith(nil)); info.Authenticated {
		t.Fatalf("expected unauthenticated without cookie")
	}

	rec := httptest.NewRecorder()
	if err := m.Establish(rec, requestWith(nil), uid, true); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	c := sessionCookie(rec)
	if c == nil || c.Value == "" || !c.HttpOnly || c.MaxAge != 3600 {
		t.Fatalf("unexpected cookie: %+v", c)
	}

	info := m.Current(requestWith(c))
	if !info.Authenticated || !info.IsAdmin || info.UserID != uid {
		t.Fatalf("unexpected info: %+v", info)
	}

	rec = httptest.NewRecorder()
	r := requestWith(c)
	if err := m.Destroy(rec, r); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	cleared := sessionCookie(rec)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("expected expiring cookie, got %+v", cleared)
	}
	// The old cookie no longer resolves to a row.
	if info := m.Current(requestWith(c)); info.Authenticated {
		t.Fatalf("expected unauthenticated after Destroy")
	}
	if n, err := d.DeleteExpiredSessions(context.Background(), time.Now().Add(48*time.Hour).Unix()); err != nil || n != 0 {
		t.Fatalf("expected no rows left, removed=%d err=%v", n, err)
	}

	// Idempotent without a cookie.
	if err := m.Destroy(httptest.NewRecorder(), requestWith(nil)); err != nil {
		t.Fatalf("Destroy without session: %v", err)
	}
}

func TestEstablishReplacesPreviousSession(t *testing.T) {
	m, _, uid := newTestManager(t, time.Hour)

	rec := httptest.NewRecorder()
	if err := m.Establish(rec, requestWith(nil), uid, false); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	first := sessionCookie(rec)

	rec = httptest.NewRecorder()
	if err := m.Establish(rec, requestWith(first), uid, true); err != nil {
		t.Fatalf("Establish (again): %v", err)
	}
	second := sessionCookie(rec)
	if second.Value == first.Value {
		t.Fatalf("expected a fresh token")
	}
	if info := m.Current(requestWith(first)); info.Authenticated {
		t.Fatalf("previous session still valid")
	}
	if info := m.Current(requestWith(second)); !info.Authenticated || !info.IsAdmin {
		t.Fatalf("unexpected info for new session: %+v", info)
	}
}

func TestExpiredSessionIsUnauthenticated(t *testing.T) {
	m, _, uid := newTestManager(t, time.Hour)
	// Rows are created with the store TTL; a negative TTL yields an already
	// expired row while the cookie stays decodable.
	m.Store.TTL = -time.Minute

	rec := httptest.NewRecorder()
	if err := m.Establish(rec, requestWith(nil), uid, true); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	if info := m.Current(requestWith(sessionCookie(rec))); info.Authenticated {
		t.Fatalf("expected expired session to be unauthenticated")
	}

	n, err := m.Store.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept row, got %d", n)
	}
}

func TestTamperedCookieIsUnauthenticated(t *testing.T) {
	m, _, uid := newTestManager(t, time.Hour)

	rec := httptest.NewRecorder()
	if err := m.Establish(rec, requestWith(nil), uid, true); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	c := sessionCookie(rec)
	c.Value = c.Value[:len(c.Value)-2] + "xx"
	if info := m.Current(requestWith(c)); info.Authenticated {
		t.Fatalf("expected tampered cookie to be rejected")
	}

	raw := &http.Cookie{Name: cookieName, Value: "not-a-signed-value"}
	if info := m.Current(requestWith(raw)); info.Authenticated {
		t.Fatalf("expected unsigned cookie to be rejected")
	}
}

func TestMalformedTokenIsUnauthenticated(t *testing.T) {
	m, d, uid := newTestManager(t, time.Hour)
	if err := d.CreateSession(context.Background(), "short", uid, true, time.Hour); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	v, err := securecookie.EncodeMulti(cookieName, "short", m.Store.Codecs...)
	if err != nil {
		t.Fatalf("EncodeMulti: %v", err)
	}
	c := &http.Cookie{Name: cookieName, Value: v}
	if info := m.Current(requestWith(c)); info.Authenticated {
		t.Fatalf("expected signed cookie with malformed token to be rejected")
	}
}

func TestContextRoundTrip(t *testing.T) {
	if info := FromContext(context.Background()); info.Authenticated {
		t.Fatalf("expected zero Info")
	}
	ctx := NewContext(context.Background(), Info{Authenticated: true, UserID: 3})
	if info := FromContext(ctx); info.UserID != 3 {
		t.Fatalf("unexpected info: %+v", info)
	}
}
