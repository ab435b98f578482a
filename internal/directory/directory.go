// Package directory es el colaborador externo que resuelve principals:
// dado un identificador opaco devuelve display name y rol. Este subsistema
// no es dueño de los registros — solo los consulta.
//
// Drivers: "static" (roster en el YAML de config, para dev y tests) y
// "postgres" (pgx). El wrapper Cached memoiza lookups por instancia.
package directory

import (
	"context"
	"errors"
)

// Principal es la identidad resuelta por el directorio.
type Principal struct {
	ID          string
	DisplayName string
	Role        string // "SuperAdmin" | "Admin" | "User" | ...
	Email       string // destino para la entrega del código de step-up
}

// Resolver es lo único que el decision engine necesita del directorio.
type Resolver interface {
	// ResolveRole busca el principal por id (case-insensitive).
	// Retorna ErrNotFound si no existe; cualquier otro error es un fallo
	// de backend (transitorio, NO una señal de seguridad).
	ResolveRole(ctx context.Context, principalID string) (Principal, error)
}

// Authenticator es la cara del directorio que usa el gateway para el
// login primario por credencial.
type Authenticator interface {
	Resolver
	// VerifyCredentials valida usuario+password. Retorna ErrBadCredentials
	// tanto para password incorrecto como para usuario inexistente
	// (sin enumeración de usuarios).
	VerifyCredentials(ctx context.Context, principalID, password string) (Principal, error)
}

var (
	ErrNotFound       = errors.New("directory: principal not found")
	ErrBadCredentials = errors.New("directory: bad credentials")
)
