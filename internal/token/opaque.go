package token

import (
	"crypto/rand"
	"encoding/base64"
)

// NewNonce genera un valor opaco aleatorio de 256 bits (base64url sin padding).
// Criptográficamente aleatorio: el lado que acuña nunca reusa un valor.
func NewNonce() (string, error) {
	return GenerateOpaque(32)
}

// GenerateOpaque genera un token opaco aleatorio de nBytes (base64url sin padding).
func GenerateOpaque(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
