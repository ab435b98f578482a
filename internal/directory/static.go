package directory

import (
	"context"
	"strings"

	"github.com/dropDatabas3/passbridge/internal/security/password"
)

// StaticEntry es una fila del roster embebido en la config.
type StaticEntry struct {
	ID           string
	DisplayName  string
	Role         string
	Email        string
	PasswordHash string // PHC argon2id; vacío => principal sin login directo
}

// Static implementa Authenticator contra un roster fijo en memoria.
type Static struct {
	byID map[string]StaticEntry
}

// NewStatic indexa el roster por id en minúsculas.
func NewStatic(entries []StaticEntry) *Static {
	m := make(map[string]StaticEntry, len(entries))
	for _, e := range entries {
		m[strings.ToLower(e.ID)] = e
	}
	return &Static{byID: m}
}

func (s *Static) ResolveRole(ctx context.Context, principalID string) (Principal, error) {
	e, ok := s.byID[strings.ToLower(principalID)]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return Principal{ID: e.ID, DisplayName: e.DisplayName, Role: e.Role, Email: e.Email}, nil
}

func (s *Static) VerifyCredentials(ctx context.Context, principalID, plain string) (Principal, error) {
	e, ok := s.byID[strings.ToLower(principalID)]
	if !ok || e.PasswordHash == "" || !password.Verify(plain, e.PasswordHash) {
		// Mismo error para usuario desconocido y password incorrecto
		return Principal{}, ErrBadCredentials
	}
	return Principal{ID: e.ID, DisplayName: e.DisplayName, Role: e.Role, Email: e.Email}, nil
}
