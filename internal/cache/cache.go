// Package cache provee abstracciones para el key-value store compartido
// sobre el que se apoyan el nonce ledger y el step-up manager.
//
// Soporta:
//   - Memory (in-process, para desarrollo/testing y scoping per-hop)
//   - Redis (distribuido, para un ledger compartido entre servicios)
//
// Todas las entradas son TTL-bound; no hay limpieza explícita — el modelo de
// recursos depende de la auto-expiración.
package cache

import (
	"context"
	"time"
)

// Client define las operaciones del cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL. Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX guarda un valor solo si la key no existe (test-and-set atómico).
	// Retorna true si la key fue insertada, false si ya existía.
	// Cuando ya existía, el TTL de la entrada original NO se modifica.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// GetDel obtiene y elimina un valor en una sola operación (check-and-delete).
	// Retorna ErrNotFound si no existe.
	GetDel(ctx context.Context, key string) (string, error)

	// Delete elimina una key.
	Delete(ctx context.Context, key string) error

	// Exists verifica si una key existe.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error

	// Stats retorna estadísticas del cache.
	Stats(ctx context.Context) (Stats, error)
}

// Stats contiene estadísticas del cache.
type Stats struct {
	Driver     string
	Keys       int64
	UsedMemory string
	Hits       int64
	Misses     int64
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string
	Password string
	DB       int
	Prefix   string // Prefijo para todas las keys
}

// Errores de cache.
var (
	ErrNotFound = errNotFound{}
)

type errNotFound struct{}

func (e errNotFound) Error() string { return "cache: key not found" }

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New crea un cliente de cache según la configuración.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	default:
		// "memory" o vacío: per-hop, sin dependencias externas
		return NewMemory(cfg.Prefix), nil
	}
}
