package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path crea un campo para el path del request.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration crea un campo para la duración del request.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field {
	return zap.Int64("duration_ms", v)
}

// Bytes crea un campo para los bytes de respuesta.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - PROTOCOLO DE HANDOFF
// =================================================================================

// PrincipalID crea un campo para el ID del principal autenticado.
func PrincipalID(v string) zap.Field {
	return zap.String("principal_id", v)
}

// Role crea un campo para el rol resuelto del principal.
func Role(v string) zap.Field {
	return zap.String("role", v)
}

// Nonce crea un campo para el nonce presentado.
// El nonce es opaco y de un solo uso; loguearlo completo es seguro y
// necesario para correlacionar replays en auditoría.
func Nonce(v string) zap.Field {
	return zap.String("nonce", v)
}

// Outcome crea un campo para el resultado de una decisión de autenticación.
func Outcome(v string) zap.Field {
	return zap.String("outcome", v)
}

// Target crea un campo para la URL destino de un handoff.
func Target(v string) zap.Field {
	return zap.String("target", v)
}

// ChallengeID crea un campo para el ID de un challenge de step-up.
func ChallengeID(v string) zap.Field {
	return zap.String("challenge_id", v)
}

// Email crea un campo para el email (usar con cuidado en prod).
func Email(v string) zap.Field {
	return zap.String("email", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Key crea un campo genérico para una clave de cache.
func Key(v string) zap.Field {
	return zap.String("key", v)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}
