package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	secret := []byte("s3cr3t")
	p := Payload{PrincipalID: "u1", IssuedAt: 1000, ExpiresAt: 1300}

	signed, err := Sign(p, secret)
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}

	got, err := Verify(signed.Payload, signed.Sig, secret)
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if got != p {
		t.Fatalf("payload mismatch: got %+v want %+v", got, p)
	}

	// En t=1200 el token vale; en t=1300 (límite inclusivo) también
	if got.ExpiredAt(1200) {
		t.Fatalf("token no debería estar vencido en 1200")
	}
	if got.ExpiredAt(1300) {
		t.Fatalf("token no debería estar vencido en exp exacto")
	}
	// Un segundo después del exp ya no
	if !got.ExpiredAt(1301) {
		t.Fatalf("token debería estar vencido en 1301")
	}
}

func TestSign_Deterministic(t *testing.T) {
	secret := []byte("s3cr3t")
	p := Payload{PrincipalID: "u1", IssuedAt: 1000, ExpiresAt: 1300}

	a, err := Sign(p, secret)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Sign(p, secret)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("mismo payload + mismo secret debería dar el mismo par: %+v vs %+v", a, b)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	signed, err := Sign(Payload{PrincipalID: "u1", IssuedAt: 1000, ExpiresAt: 1300}, []byte("s3cr3t"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(signed.Payload, signed.Sig, []byte("wrong-secret")); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("esperaba ErrInvalidSignature, got %v", err)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	secret := []byte("s3cr3t")
	signed, err := Sign(Payload{PrincipalID: "u1", IssuedAt: 1000, ExpiresAt: 1300}, secret)
	if err != nil {
		t.Fatal(err)
	}

	// Alterar un byte del payload codificado invalida la firma
	raw, err := base64.RawURLEncoding.DecodeString(signed.Payload)
	if err != nil {
		t.Fatal(err)
	}
	raw[0] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	if _, err := Verify(tampered, signed.Sig, secret); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("esperaba ErrInvalidSignature con payload alterado, got %v", err)
	}
}

func TestVerify_SigNotBase64(t *testing.T) {
	signed, err := Sign(Payload{PrincipalID: "u1", IssuedAt: 1000, ExpiresAt: 1300}, []byte("s3cr3t"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Verify(signed.Payload, "%%%not-base64%%%", []byte("s3cr3t")); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("esperaba ErrInvalidSignature, got %v", err)
	}
}

// Un payload con firma válida pero contenido inesperado se rechaza igual:
// la firma prueba origen, no forma.
func TestVerify_MalformedPayload(t *testing.T) {
	secret := []byte("s3cr3t")

	// Firmar contenido arbitrario directo con el mac interno
	sign := func(raw []byte) (string, string) {
		encoded := base64.RawURLEncoding.EncodeToString(raw)
		return encoded, base64.RawURLEncoding.EncodeToString(mac(encoded, secret))
	}

	cases := map[string][]byte{
		"campo desconocido": mustJSON(t, map[string]any{"uid": "u1", "iat": 1000, "exp": 1300, "extra": true}),
		"sin uid":           mustJSON(t, map[string]any{"iat": 1000, "exp": 1300}),
		"sin exp":           mustJSON(t, map[string]any{"uid": "u1", "iat": 1000}),
		"no es json":        []byte("hola"),
		"json doble":        []byte(`{"uid":"u1","iat":1,"exp":2}{"uid":"u2","iat":1,"exp":2}`),
	}
	for name, raw := range cases {
		payload, sig := sign(raw)
		if _, err := Verify(payload, sig, secret); !errors.Is(err, ErrMalformedPayload) {
			t.Fatalf("%s: esperaba ErrMalformedPayload, got %v", name, err)
		}
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
