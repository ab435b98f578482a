package directory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/passbridge/internal/security/password"
)

func TestStatic_ResolveRole_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := NewStatic([]StaticEntry{
		{ID: "Admin", DisplayName: "Admin", Role: "SuperAdmin", Email: "a@example.com"},
	})

	for _, id := range []string{"Admin", "admin", "ADMIN"} {
		p, err := s.ResolveRole(ctx, id)
		if err != nil {
			t.Fatalf("ResolveRole(%q) err: %v", id, err)
		}
		// El ID devuelto es el canónico del roster, no el presentado
		if p.ID != "Admin" || p.Role != "SuperAdmin" {
			t.Fatalf("principal inesperado: %+v", p)
		}
	}

	if _, err := s.ResolveRole(ctx, "nadie"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("esperaba ErrNotFound, got %v", err)
	}
}

func TestStatic_VerifyCredentials(t *testing.T) {
	ctx := context.Background()
	hash, err := password.Hash(password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}, "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	s := NewStatic([]StaticEntry{
		{ID: "jdoe", Role: "User", Email: "j@example.com", PasswordHash: hash},
		{ID: "sinlogin", Role: "User", Email: "s@example.com"},
	})

	if _, err := s.VerifyCredentials(ctx, "jdoe", "hunter2"); err != nil {
		t.Fatalf("credenciales válidas: %v", err)
	}
	// Password incorrecto, usuario desconocido y principal sin hash
	// comparten el mismo error
	for _, c := range [][2]string{{"jdoe", "nope"}, {"nadie", "hunter2"}, {"sinlogin", "hunter2"}} {
		if _, err := s.VerifyCredentials(ctx, c[0], c[1]); !errors.Is(err, ErrBadCredentials) {
			t.Fatalf("VerifyCredentials(%q): esperaba ErrBadCredentials, got %v", c[0], err)
		}
	}
}

type countingResolver struct {
	calls atomic.Int64
	fail  bool
}

func (c *countingResolver) ResolveRole(ctx context.Context, principalID string) (Principal, error) {
	c.calls.Add(1)
	if c.fail {
		return Principal{}, ErrNotFound
	}
	return Principal{ID: principalID, Role: "User"}, nil
}

func TestCached_MemoizesSuccesses(t *testing.T) {
	ctx := context.Background()
	inner := &countingResolver{}
	c := NewCached(inner, time.Minute)

	for i := 0; i < 5; i++ {
		if _, err := c.ResolveRole(ctx, "jdoe"); err != nil {
			t.Fatal(err)
		}
	}
	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("el backend debería consultarse una vez, got %d", got)
	}

	// Distinta capitalización comparte la entrada memoizada
	if _, err := c.ResolveRole(ctx, "JDOE"); err != nil {
		t.Fatal(err)
	}
	if got := inner.calls.Load(); got != 1 {
		t.Fatalf("lookup case-insensitive no debería ir al backend, got %d", got)
	}
}

func TestCached_DoesNotMemoizeFailures(t *testing.T) {
	ctx := context.Background()
	inner := &countingResolver{fail: true}
	c := NewCached(inner, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := c.ResolveRole(ctx, "nadie"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("esperaba ErrNotFound, got %v", err)
		}
	}
	if got := inner.calls.Load(); got != 3 {
		t.Fatalf("los fallos no se memoizan: got %d calls", got)
	}
}
