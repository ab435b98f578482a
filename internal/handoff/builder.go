// Package handoff arma las URLs de redirección que trasladan una sesión
// autenticada al próximo servicio. Cada URL lleva un token recién firmado y
// un nonce fresco; el registro del nonce en el ledger ocurre implícitamente
// del lado RECEPTOR, en su primer CheckAndReserve.
package handoff

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dropDatabas3/passbridge/internal/token"
)

// Builder acuña handoffs contra el secret compartido.
type Builder struct {
	Secret []byte
	Now    func() time.Time // inyectable para tests
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Build acuña un token fresco para principalID con la vida dada y arma la URL
// de entrada del servicio destino. Todos los componentes viajan
// percent-encoded. ttl típico: ~5m para un primer hop que se consume en
// segundos, ~4h para un hop que acompaña la sesión de trabajo.
func (b *Builder) Build(principalID, targetBaseURL string, ttl time.Duration) (string, error) {
	u, err := url.Parse(targetBaseURL)
	if err != nil {
		return "", fmt.Errorf("handoff: target inválido: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("handoff: target sin scheme/host: %q", targetBaseURL)
	}

	now := b.now()
	signed, err := token.Sign(token.Payload{
		PrincipalID: principalID,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(ttl).Unix(),
	}, b.Secret)
	if err != nil {
		return "", fmt.Errorf("handoff: sign: %w", err)
	}

	n, err := token.NewNonce()
	if err != nil {
		return "", fmt.Errorf("handoff: nonce: %w", err)
	}

	q := u.Query()
	q.Set("token", signed.Payload)
	q.Set("sig", signed.Sig)
	q.Set("uid", principalID)
	q.Set("nonce", n)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
