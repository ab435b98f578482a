// Package session maneja la sesión local de cada servicio: una cookie JWT
// HS256 que vive solo dentro del servicio que la emitió. No es parte del
// protocolo de handoff — el traslado entre servicios va siempre por token
// firmado + nonce, nunca por cookie compartida.
package session

import (
	"errors"
	"net/http"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("session: missing or invalid")

// Manager emite y valida la cookie de sesión local.
type Manager struct {
	CookieName string
	Secret     []byte
	TTL        time.Duration
	Secure     bool
	Now        func() time.Time
}

func New(cookieName string, secret []byte, ttl time.Duration, secure bool) *Manager {
	if cookieName == "" {
		cookieName = "pb_session"
	}
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Manager{CookieName: cookieName, Secret: secret, TTL: ttl, Secure: secure}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Issue firma un JWT de sesión y lo setea como cookie HttpOnly.
func (m *Manager) Issue(w http.ResponseWriter, principalID, role string) error {
	now := m.now()
	claims := jwtv5.MapClaims{
		"sub":  principalID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(m.TTL).Unix(),
	}
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.Secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.TTL.Seconds()),
	})
	return nil
}

// Current valida la cookie del request y devuelve (principalID, role).
func (m *Manager) Current(r *http.Request) (string, string, error) {
	c, err := r.Cookie(m.CookieName)
	if err != nil || c.Value == "" {
		return "", "", ErrNoSession
	}

	parsed, err := jwtv5.Parse(c.Value,
		func(t *jwtv5.Token) (any, error) { return m.Secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return "", "", ErrNoSession
	}
	claims, ok := parsed.Claims.(jwtv5.MapClaims)
	if !ok {
		return "", "", ErrNoSession
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return "", "", ErrNoSession
	}
	return sub, role, nil
}

// Clear borra la cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
