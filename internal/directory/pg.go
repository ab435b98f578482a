package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/passbridge/internal/security/password"
)

// PG implementa Authenticator contra Postgres (tabla principals).
type PG struct{ pool *pgxpool.Pool }

// NewPG crea el pool y verifica la conexión.
func NewPG(ctx context.Context, dsn string) (*PG, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("directory: parse dsn: %w", err)
	}
	if cfg.MaxConns == 0 {
		cfg.MaxConns = 5
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("directory: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("directory: ping: %w", err)
	}
	return &PG{pool: pool}, nil
}

// Pool expone el pool interno (readyz/metrics).
func (d *PG) Pool() *pgxpool.Pool {
	if d == nil {
		return nil
	}
	return d.pool
}

// Close cierra el pool subyacente (idempotente).
func (d *PG) Close() {
	if d != nil && d.pool != nil {
		d.pool.Close()
	}
}

func (d *PG) ResolveRole(ctx context.Context, principalID string) (Principal, error) {
	var p Principal
	err := d.pool.QueryRow(ctx,
		`SELECT id, display_name, role, email
		   FROM principals
		  WHERE lower(id) = lower($1)`,
		principalID,
	).Scan(&p.ID, &p.DisplayName, &p.Role, &p.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return Principal{}, ErrNotFound
	}
	if err != nil {
		return Principal{}, fmt.Errorf("directory: query: %w", err)
	}
	return p, nil
}

func (d *PG) VerifyCredentials(ctx context.Context, principalID, plain string) (Principal, error) {
	var p Principal
	var hash string
	err := d.pool.QueryRow(ctx,
		`SELECT id, display_name, role, email, password_hash
		   FROM principals
		  WHERE lower(id) = lower($1)`,
		principalID,
	).Scan(&p.ID, &p.DisplayName, &p.Role, &p.Email, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return Principal{}, ErrBadCredentials
	}
	if err != nil {
		return Principal{}, fmt.Errorf("directory: query: %w", err)
	}
	if !password.Verify(plain, hash) {
		return Principal{}, ErrBadCredentials
	}
	return p, nil
}
