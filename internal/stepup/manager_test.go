package stepup

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/dropDatabas3/passbridge/internal/cache"
	"github.com/dropDatabas3/passbridge/internal/directory"
)

type fakeNotifier struct {
	lastPrincipal directory.Principal
	lastCode      string
	fail          error
	calls         int
}

func (f *fakeNotifier) Deliver(ctx context.Context, p directory.Principal, code string, ttl time.Duration) error {
	f.calls++
	f.lastPrincipal = p
	f.lastCode = code
	return f.fail
}

func newTestManager(n Notifier) *Manager {
	return NewManager(cache.NewMemory(""), n, time.Minute, time.Minute)
}

var codeRe = regexp.MustCompile(`^\d{6}$`)

func TestIssueVerify_RoundTrip(t *testing.T) {
	ctx := context.Background()
	notif := &fakeNotifier{}
	m := newTestManager(notif)
	p := directory.Principal{ID: "Admin", Role: "SuperAdmin", Email: "a@example.com"}

	ch, err := m.Issue(ctx, p, "https://svc.example.com/v1/sso?uid=Admin&nonce=n1")
	if err != nil {
		t.Fatalf("Issue err: %v", err)
	}
	if !codeRe.MatchString(ch.Code) {
		t.Fatalf("código no es de 6 dígitos: %q", ch.Code)
	}
	if notif.lastCode != ch.Code {
		t.Fatalf("el notifier recibió %q, challenge guarda %q", notif.lastCode, ch.Code)
	}

	// El lookup es case-insensitive sobre el principal
	returnTo, err := m.Verify(ctx, "admin", ch.Code)
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if returnTo != "https://svc.example.com/v1/sso?uid=Admin&nonce=n1" {
		t.Fatalf("returnTo inesperado: %q", returnTo)
	}

	// El código es de un solo uso: verificado, desaparece
	if _, err := m.Verify(ctx, "admin", ch.Code); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("esperaba ErrChallengeExpired, got %v", err)
	}
}

func TestVerify_MismatchKeepsChallenge(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(&fakeNotifier{})
	p := directory.Principal{ID: "u1", Email: "u@example.com"}

	ch, err := m.Issue(ctx, p, "")
	if err != nil {
		t.Fatal(err)
	}

	wrong := "000000"
	if wrong == ch.Code {
		wrong = "000001"
	}
	if _, err := m.Verify(ctx, "u1", wrong); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("esperaba ErrCodeMismatch, got %v", err)
	}

	// El challenge original sigue vigente para el próximo intento
	if _, err := m.Verify(ctx, "u1", ch.Code); err != nil {
		t.Fatalf("el código correcto debería verificar después de un mismatch: %v", err)
	}
}

func TestVerify_NoChallenge(t *testing.T) {
	m := newTestManager(&fakeNotifier{})
	if _, err := m.Verify(context.Background(), "nadie", "123456"); !errors.Is(err, ErrChallengeExpired) {
		t.Fatalf("esperaba ErrChallengeExpired, got %v", err)
	}
}

func TestIssue_ReplacesPreviousChallenge(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(&fakeNotifier{})
	p := directory.Principal{ID: "u1", Email: "u@example.com"}

	first, err := m.Issue(ctx, p, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Issue(ctx, p, "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Code == second.Code {
		t.Skip("colisión de códigos aleatorios")
	}

	// Emitir de nuevo pisa el challenge anterior
	if _, err := m.Verify(ctx, "u1", first.Code); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("el código viejo no debería verificar, got %v", err)
	}
	if _, err := m.Verify(ctx, "u1", second.Code); err != nil {
		t.Fatalf("el código nuevo debería verificar: %v", err)
	}
}

// Un fallo de entrega se reporta pero NO revierte el código guardado.
func TestIssue_DeliveryFailureKeepsCode(t *testing.T) {
	ctx := context.Background()
	notif := &fakeNotifier{fail: errors.New("smtp down")}
	m := newTestManager(notif)
	p := directory.Principal{ID: "u1", Email: "u@example.com"}

	ch, err := m.Issue(ctx, p, "")
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("esperaba ErrDelivery, got %v", err)
	}
	if _, err := m.Verify(ctx, "u1", ch.Code); err != nil {
		t.Fatalf("el código debería seguir guardado tras fallo de entrega: %v", err)
	}
}

func TestConsumeFlag_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(&fakeNotifier{})
	p := directory.Principal{ID: "u1", Email: "u@example.com"}

	// Sin verificación previa no hay flag
	ok, err := m.ConsumeFlag(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("no debería haber flag: ok=%v err=%v", ok, err)
	}

	ch, err := m.Issue(ctx, p, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Verify(ctx, "u1", ch.Code); err != nil {
		t.Fatal(err)
	}

	// Primera consumición autoriza, la segunda ya no (delete-on-read)
	ok, err = m.ConsumeFlag(ctx, "U1")
	if err != nil || !ok {
		t.Fatalf("el flag debería consumirse: ok=%v err=%v", ok, err)
	}
	ok, err = m.ConsumeFlag(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("el flag no debería consumirse dos veces: ok=%v err=%v", ok, err)
	}
}
