// Package nonce implementa el ledger de un solo uso contra replay.
//
// El ledger no sabe nada de principals: es un store puro de valores. La
// primera presentación de un valor lo reserva; toda presentación posterior
// (mientras viva el TTL) reporta firstUse=false sin tocar el TTL original.
// La desambiguación entre "vuelta legítima del step-up" y "replay" ocurre
// una capa arriba, en el decision engine.
package nonce

import (
	"context"
	"time"

	"github.com/dropDatabas3/passbridge/internal/cache"
)

const (
	keyPrefix = "nonce:"

	// DefaultTTL aplica cuando la config es faltante o no positiva
	// (default permisivo, no un error).
	DefaultTTL = 600 * time.Second
)

// Ledger responde "¿vi este valor antes?" exactamente una vez por valor.
type Ledger struct {
	cache cache.Client
	ttl   time.Duration
}

// NewLedger crea un ledger sobre el cache compartido.
func NewLedger(c cache.Client, ttl time.Duration) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{cache: c, ttl: ttl}
}

// CheckAndReserve reserva el nonce si es la primera vez que se ve.
// Atómico bajo llamadas concurrentes con el mismo valor: exactamente una
// gana firstUse=true (SetNX, un solo round trip — nunca read-then-write).
func (l *Ledger) CheckAndReserve(ctx context.Context, value string) (firstUse bool, err error) {
	// El valor guardado es irrelevante; la presencia de la key ES la señal.
	return l.cache.SetNX(ctx, keyPrefix+value, "1", l.ttl)
}

// TTL expone la vida efectiva de una reserva (para logs/diagnóstico).
func (l *Ledger) TTL() time.Duration { return l.ttl }
