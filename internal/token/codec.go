// Package token implementa el códec de tokens firmados del protocolo de handoff.
//
// Un token viaja como par (payload, sig): el payload es JSON en base64url sin
// padding, y sig es HMAC-SHA256 del payload codificado bajo el secret
// compartido. No hay header ni negociación de algoritmo — el formato es fijo
// y el secret se provisiona out-of-band, idéntico en todos los servicios.
package token

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidSignature: la firma no corresponde al payload bajo este secret.
	// Ningún campo del payload es confiable; terminal para el request.
	ErrInvalidSignature = errors.New("token: invalid signature")

	// ErrMalformedPayload: la firma verifica pero el payload no es el JSON
	// estricto esperado. Terminal para el request.
	ErrMalformedPayload = errors.New("token: malformed payload")
)

// Payload es el contenido firmado de un token de handoff.
// Inmutable una vez firmado; viaja completo dentro de la URL, nunca se persiste.
type Payload struct {
	PrincipalID string `json:"uid"`
	IssuedAt    int64  `json:"iat"` // unix seconds
	ExpiresAt   int64  `json:"exp"` // unix seconds
}

// ExpiredAt informa si el payload está vencido en el instante dado.
// El límite es inclusivo: en now == exp el token todavía vale.
// Verify NO chequea expiración — es responsabilidad del caller, después
// de establecer confianza en la firma.
func (p Payload) ExpiredAt(nowUnix int64) bool {
	return nowUnix > p.ExpiresAt
}

// Signed es el par listo para viajar en una URL.
// Invariante: Sig == base64url(HMAC-SHA256(Payload, secret)).
type Signed struct {
	Payload string // base64url sin padding del JSON
	Sig     string // base64url sin padding del digest
}

// Sign serializa y firma el payload con el secret compartido.
// Determinístico: mismo payload + mismo secret => mismo par.
func Sign(p Payload, secret []byte) (Signed, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Signed{}, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return Signed{
		Payload: encoded,
		Sig:     base64.RawURLEncoding.EncodeToString(mac(encoded, secret)),
	}, nil
}

// Verify recomputa la firma esperada sobre el payload recibido y la compara
// en tiempo constante contra la firma recibida. Solo después de ese match
// decodifica y parsea el payload (fail-closed: campos desconocidos o
// faltantes lo rechazan).
func Verify(payloadEncoded, sigEncoded string, secret []byte) (Payload, error) {
	expected := mac(payloadEncoded, secret)

	got, err := base64.RawURLEncoding.DecodeString(sigEncoded)
	if err != nil || !hmac.Equal(expected, got) {
		return Payload{}, ErrInvalidSignature
	}

	raw, err := base64.RawURLEncoding.DecodeString(payloadEncoded)
	if err != nil {
		return Payload{}, ErrMalformedPayload
	}

	var p Payload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Payload{}, ErrMalformedPayload
	}
	if dec.More() {
		return Payload{}, ErrMalformedPayload
	}
	// Campos obligatorios: un payload sin uid o sin timestamps no es un token
	if p.PrincipalID == "" || p.IssuedAt == 0 || p.ExpiresAt == 0 {
		return Payload{}, ErrMalformedPayload
	}
	return p, nil
}

func mac(encodedPayload string, secret []byte) []byte {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(encodedPayload))
	return h.Sum(nil)
}
