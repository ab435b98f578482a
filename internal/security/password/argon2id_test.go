package password

import (
	"strings"
	"testing"
)

// Params livianos para tests; Verify lee los parámetros del propio PHC string
var testParams = Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := Hash(testParams, "hunter2")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$") {
		t.Fatalf("formato PHC inesperado: %q", phc)
	}
	if !Verify("hunter2", phc) {
		t.Fatal("el password correcto debería verificar")
	}
	if Verify("nope", phc) {
		t.Fatal("un password incorrecto no debería verificar")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, err := Hash(testParams, "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Hash(testParams, "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("dos hashes del mismo password deberían diferir por el salt")
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	if _, err := Hash(testParams, ""); err == nil {
		t.Fatal("password vacío debería rechazarse")
	}
}

func TestVerify_GarbageInput(t *testing.T) {
	for _, phc := range []string{"", "no-es-phc", "$argon2id$v=19$basura"} {
		if Verify("x", phc) {
			t.Fatalf("Verify(%q) debería dar false", phc)
		}
	}
}
