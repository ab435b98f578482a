package handoff

import (
	"net/url"
	"testing"
	"time"

	"github.com/dropDatabas3/passbridge/internal/token"
)

func TestBuild_URLCarriesSignedToken(t *testing.T) {
	secret := []byte("s3cr3t")
	b := &Builder{
		Secret: secret,
		Now:    func() time.Time { return time.Unix(1000, 0) },
	}

	raw, err := b.Build("u1", "https://svc.example.com/v1/sso", 5*time.Minute)
	if err != nil {
		t.Fatalf("Build err: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	for _, param := range []string{"token", "sig", "uid", "nonce"} {
		if q.Get(param) == "" {
			t.Fatalf("falta el parámetro %q en %s", param, raw)
		}
	}
	if q.Get("uid") != "u1" {
		t.Fatalf("uid got %q", q.Get("uid"))
	}

	// El token embebido tiene que verificar con el mismo secret
	p, err := token.Verify(q.Get("token"), q.Get("sig"), secret)
	if err != nil {
		t.Fatalf("el token de la URL no verifica: %v", err)
	}
	if p.PrincipalID != "u1" || p.IssuedAt != 1000 || p.ExpiresAt != 1300 {
		t.Fatalf("payload inesperado: %+v", p)
	}
}

func TestBuild_PreservesTargetPathAndQuery(t *testing.T) {
	b := &Builder{Secret: []byte("s3cr3t")}

	raw, err := b.Build("u1", "https://svc.example.com/v1/sso?app=crm", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if u.Path != "/v1/sso" {
		t.Fatalf("path got %q", u.Path)
	}
	if u.Query().Get("app") != "crm" {
		t.Fatalf("el query original del target debería sobrevivir: %s", raw)
	}
}

func TestBuild_FreshNoncePerURL(t *testing.T) {
	b := &Builder{Secret: []byte("s3cr3t")}

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		raw, err := b.Build("u1", "https://svc.example.com/v1/sso", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		u, _ := url.Parse(raw)
		n := u.Query().Get("nonce")
		if seen[n] {
			t.Fatalf("nonce repetido: %q", n)
		}
		seen[n] = true
	}
}

func TestBuild_RejectsBadTargets(t *testing.T) {
	b := &Builder{Secret: []byte("s3cr3t")}

	for _, target := range []string{"", "no-scheme", "/solo/path", "https://"} {
		if _, err := b.Build("u1", target, time.Minute); err == nil {
			t.Fatalf("target %q debería rechazarse", target)
		}
	}
}
