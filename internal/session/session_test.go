package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func issueAndRequest(t *testing.T, m *Manager, uid, role string) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := m.Issue(rec, uid, role); err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("esperaba 1 cookie, got %d", len(cookies))
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	return req
}

func TestIssueCurrent_RoundTrip(t *testing.T) {
	m := New("pb_session", []byte("secret"), time.Hour, false)

	req := issueAndRequest(t, m, "jdoe", "User")
	uid, role, err := m.Current(req)
	if err != nil {
		t.Fatalf("Current err: %v", err)
	}
	if uid != "jdoe" || role != "User" {
		t.Fatalf("got (%q, %q)", uid, role)
	}
}

func TestCurrent_NoCookie(t *testing.T) {
	m := New("pb_session", []byte("secret"), time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, _, err := m.Current(req); err != ErrNoSession {
		t.Fatalf("esperaba ErrNoSession, got %v", err)
	}
}

func TestCurrent_WrongSecret(t *testing.T) {
	issuer := New("pb_session", []byte("secret-a"), time.Hour, false)
	verifier := New("pb_session", []byte("secret-b"), time.Hour, false)

	req := issueAndRequest(t, issuer, "jdoe", "User")
	if _, _, err := verifier.Current(req); err != ErrNoSession {
		t.Fatalf("cookie firmada con otro secret debería rechazarse, got %v", err)
	}
}

func TestCurrent_Expired(t *testing.T) {
	m := New("pb_session", []byte("secret"), time.Hour, false)

	base := time.Now()
	m.Now = func() time.Time { return base }
	req := issueAndRequest(t, m, "jdoe", "User")

	// Pasada la vida de la cookie, la sesión no vale
	m.Now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, _, err := m.Current(req); err != ErrNoSession {
		t.Fatalf("sesión vencida debería rechazarse, got %v", err)
	}
}
