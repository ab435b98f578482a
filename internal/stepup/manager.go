// Package stepup implementa el segundo factor por código enviado a email.
//
// Estado en el cache compartido, nunca en memoria del proceso:
//
//	stepup:code:<principal> — challenge pendiente (TTL 300s, uno por principal;
//	                          emitir otro pisa el anterior)
//	stepup:flag:<principal> — "step-up satisfecho" (TTL 3600s, creado solo al
//	                          verificar; consumido exactamente una vez)
package stepup

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/passbridge/internal/cache"
	"github.com/dropDatabas3/passbridge/internal/directory"
	"github.com/dropDatabas3/passbridge/internal/observability/logger"
)

const (
	codeKeyPrefix = "stepup:code:"
	flagKeyPrefix = "stepup:flag:"

	DefaultCodeTTL = 300 * time.Second
	DefaultFlagTTL = 3600 * time.Second
)

var (
	// ErrChallengeExpired: no hay código vigente para el principal.
	ErrChallengeExpired = errors.New("stepup: challenge expired")

	// ErrCodeMismatch: el código no coincide. El challenge original sigue
	// vigente hasta su propio TTL (sin contador de intentos — gap conocido).
	ErrCodeMismatch = errors.New("stepup: code mismatch")

	// ErrDelivery: la entrega falló. El código YA quedó guardado — no se
	// revierte; el caller decide si reintenta la emisión.
	ErrDelivery = errors.New("stepup: delivery failed")
)

// Notifier entrega el código al principal. Colaborador externo.
type Notifier interface {
	Deliver(ctx context.Context, p directory.Principal, code string, ttl time.Duration) error
}

// Challenge es el registro cacheado de un código pendiente.
type Challenge struct {
	ID          string `json:"id"`
	PrincipalID string `json:"principal_id"`
	Code        string `json:"code"`
	CreatedAt   int64  `json:"created_at"`
	// ReturnTo es la URL de entrada original (mismo token y nonce) a la que
	// el browser vuelve cuando el código verifica.
	ReturnTo string `json:"return_to,omitempty"`
}

type flagRecord struct {
	PrincipalID string `json:"principal_id"`
	CreatedAt   int64  `json:"created_at"`
}

// Manager emite y verifica challenges de step-up.
type Manager struct {
	Cache   cache.Client
	Notify  Notifier
	CodeTTL time.Duration
	FlagTTL time.Duration
	Now     func() time.Time // inyectable para tests; default time.Now
}

func NewManager(c cache.Client, n Notifier, codeTTL, flagTTL time.Duration) *Manager {
	if codeTTL <= 0 {
		codeTTL = DefaultCodeTTL
	}
	if flagTTL <= 0 {
		flagTTL = DefaultFlagTTL
	}
	return &Manager{Cache: c, Notify: n, CodeTTL: codeTTL, FlagTTL: flagTTL}
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Issue genera un código de 6 dígitos, lo guarda (pisando cualquier challenge
// anterior del principal) y dispara la entrega. Un fallo de entrega se
// reporta como ErrDelivery pero el challenge queda vigente igual.
func (m *Manager) Issue(ctx context.Context, p directory.Principal, returnTo string) (Challenge, error) {
	code, err := newCode()
	if err != nil {
		return Challenge{}, fmt.Errorf("stepup: generate code: %w", err)
	}

	ch := Challenge{
		ID:          uuid.NewString(),
		PrincipalID: p.ID,
		Code:        code,
		CreatedAt:   m.now().Unix(),
		ReturnTo:    returnTo,
	}
	raw, err := json.Marshal(ch)
	if err != nil {
		return Challenge{}, err
	}
	if err := m.Cache.Set(ctx, codeKey(p.ID), string(raw), m.CodeTTL); err != nil {
		return Challenge{}, fmt.Errorf("stepup: store challenge: %w", err)
	}

	logger.From(ctx).Info("step-up challenge issued",
		logger.PrincipalID(p.ID),
		logger.ChallengeID(ch.ID),
	)

	if m.Notify != nil {
		if err := m.Notify.Deliver(ctx, p, code, m.CodeTTL); err != nil {
			// Entrega fire-and-forget: el código guardado no se revierte.
			// El error jamás incluye el código.
			return ch, fmt.Errorf("%w: %v", ErrDelivery, err)
		}
	}
	return ch, nil
}

// Verify compara el código presentado contra el vigente.
// Éxito: borra el challenge, setea el flag (TTL 3600s) y devuelve la URL de
// retorno guardada. Mismatch: el challenge queda vigente para más intentos.
func (m *Manager) Verify(ctx context.Context, principalID, submitted string) (returnTo string, err error) {
	raw, err := m.Cache.Get(ctx, codeKey(principalID))
	if cache.IsNotFound(err) {
		return "", ErrChallengeExpired
	}
	if err != nil {
		return "", fmt.Errorf("stepup: fetch challenge: %w", err)
	}

	var ch Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return "", fmt.Errorf("stepup: corrupt challenge: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(ch.Code), []byte(submitted)) != 1 {
		logger.From(ctx).Warn("step-up code mismatch",
			logger.PrincipalID(principalID),
			logger.ChallengeID(ch.ID),
		)
		return "", ErrCodeMismatch
	}

	if err := m.Cache.Delete(ctx, codeKey(principalID)); err != nil {
		return "", fmt.Errorf("stepup: delete challenge: %w", err)
	}

	flag, _ := json.Marshal(flagRecord{PrincipalID: ch.PrincipalID, CreatedAt: m.now().Unix()})
	if err := m.Cache.Set(ctx, flagKey(principalID), string(flag), m.FlagTTL); err != nil {
		return "", fmt.Errorf("stepup: store flag: %w", err)
	}

	logger.From(ctx).Info("step-up satisfied",
		logger.PrincipalID(principalID),
		logger.ChallengeID(ch.ID),
	)
	return ch.ReturnTo, nil
}

// ConsumeFlag chequea y borra el flag en una sola operación.
// Un flag autoriza a lo sumo UNA decisión de replay (delete-on-read).
func (m *Manager) ConsumeFlag(ctx context.Context, principalID string) (bool, error) {
	_, err := m.Cache.GetDel(ctx, flagKey(principalID))
	if cache.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stepup: consume flag: %w", err)
	}
	return true, nil
}

func codeKey(principalID string) string { return codeKeyPrefix + strings.ToLower(principalID) }
func flagKey(principalID string) string { return flagKeyPrefix + strings.ToLower(principalID) }

// newCode devuelve 6 dígitos uniformes en [100000, 999999].
func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
