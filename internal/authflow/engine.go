// Package authflow implementa el decision engine: la máquina de estados que
// decide qué hacer con un token + nonce entrante. Orquestación pura — todo
// estado que sobrevive a la llamada vive en el cache compartido, detrás del
// nonce ledger y el step-up manager.
package authflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/passbridge/internal/directory"
	"github.com/dropDatabas3/passbridge/internal/nonce"
	"github.com/dropDatabas3/passbridge/internal/observability/logger"
	"github.com/dropDatabas3/passbridge/internal/stepup"
	"github.com/dropDatabas3/passbridge/internal/token"
)

// Status es el resultado de una decisión. require_step_up no es terminal:
// la transición esperada es una segunda llamada con el MISMO nonce después
// de que el challenge verifique.
type Status string

const (
	StatusGranted       Status = "granted"
	StatusRequireStepUp Status = "require_step_up"
	StatusRejectReplay  Status = "reject_replay"
	StatusRejectInvalid Status = "reject_invalid"
	StatusRejectExpired Status = "reject_expired"
)

var (
	ErrPrincipalMismatch    = errors.New("authflow: principal mismatch")
	ErrTokenExpired         = errors.New("authflow: token expired")
	ErrPrincipalNotFound    = errors.New("authflow: principal not found")
	ErrDirectoryUnavailable = errors.New("authflow: directory unavailable")
	ErrReplayDetected       = errors.New("authflow: nonce replay detected")
)

// Request es la presentación entrante: los cuatro query params del entry
// endpoint, sin interpretar.
type Request struct {
	TokenPayload string // param "token"
	TokenSig     string // param "sig"
	PrincipalID  string // param "uid" (claimed, no confiable hasta el match)
	Nonce        string // param "nonce"
}

// Decision es el resultado transitorio; nunca se persiste.
type Decision struct {
	Status    Status
	Principal directory.Principal
	// Reason lleva el sentinel de la causa para rejects. La capa HTTP decide
	// cuánto de esto es visible al usuario (genérico para señales de
	// seguridad, distinguible para fallos transitorios de backend).
	Reason error
}

// Engine evalúa presentaciones. Sin estado propio: seguro para uso
// concurrente desde múltiples requests.
type Engine struct {
	Secret     []byte
	Ledger     *nonce.Ledger
	StepUp     *stepup.Manager
	Directory  directory.Resolver
	Privileged map[string]struct{} // roles que fuerzan step-up (tabla de política)
	Now        func() time.Time    // inyectable para tests
}

// NewEngine arma un engine con la tabla de roles privilegiados dada.
func NewEngine(secret []byte, ledger *nonce.Ledger, su *stepup.Manager, dir directory.Resolver, privilegedRoles []string) *Engine {
	priv := make(map[string]struct{}, len(privilegedRoles))
	for _, r := range privilegedRoles {
		priv[r] = struct{}{}
	}
	return &Engine{
		Secret:     secret,
		Ledger:     ledger,
		StepUp:     su,
		Directory:  dir,
		Privileged: priv,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// RequiresStepUp aplica la tabla de política sobre el rol resuelto.
func (e *Engine) RequiresStepUp(role string) bool {
	_, ok := e.Privileged[role]
	return ok
}

// Decide corre la máquina de estados completa sobre una presentación.
//
//	Pending -> {Granted, RequireStepUp, RejectReplay, RejectInvalid, RejectExpired}
//
// Los fallos de firma/payload/mismatch nunca llegan al store: un request
// rechazado deja el cache exactamente como estaba.
func (e *Engine) Decide(ctx context.Context, req Request) Decision {
	log := logger.From(ctx).With(
		logger.PrincipalID(req.PrincipalID),
		logger.Nonce(req.Nonce),
	)

	// 1. Firma primero: ningún campo es confiable antes de esto.
	payload, err := token.Verify(req.TokenPayload, req.TokenSig, e.Secret)
	if err != nil {
		log.Warn("auth decision", logger.Outcome(string(StatusRejectInvalid)), logger.Err(err))
		return Decision{Status: StatusRejectInvalid, Reason: err}
	}

	// 2. El uid del query tiene que matchear el firmado (case-insensitive).
	if !strings.EqualFold(payload.PrincipalID, req.PrincipalID) {
		log.Warn("auth decision", logger.Outcome(string(StatusRejectInvalid)), logger.Err(ErrPrincipalMismatch))
		return Decision{Status: StatusRejectInvalid, Reason: ErrPrincipalMismatch}
	}

	// 3. Expiración — recién ahora que la firma estableció confianza.
	if payload.ExpiredAt(e.now().Unix()) {
		log.Warn("auth decision", logger.Outcome(string(StatusRejectExpired)), logger.Err(ErrTokenExpired))
		return Decision{Status: StatusRejectExpired, Reason: ErrTokenExpired}
	}

	// 4. Resolver rol en el directorio.
	principal, err := e.Directory.ResolveRole(ctx, payload.PrincipalID)
	if err != nil {
		reason := ErrDirectoryUnavailable
		if errors.Is(err, directory.ErrNotFound) {
			reason = ErrPrincipalNotFound
		}
		log.Warn("auth decision", logger.Outcome(string(StatusRejectInvalid)), logger.Err(err))
		return Decision{Status: StatusRejectInvalid, Reason: reason}
	}

	// 5. Reservar el nonce.
	firstUse, err := e.Ledger.CheckAndReserve(ctx, req.Nonce)
	if err != nil {
		// Fallo del cache: tratar como backend no disponible, no como ataque.
		log.Error("nonce ledger unavailable", logger.Err(err))
		return Decision{Status: StatusRejectInvalid, Principal: principal, Reason: ErrDirectoryUnavailable}
	}

	if firstUse {
		if e.RequiresStepUp(principal.Role) {
			log.Info("auth decision",
				logger.Outcome(string(StatusRequireStepUp)),
				logger.Role(principal.Role),
			)
			return Decision{Status: StatusRequireStepUp, Principal: principal}
		}
		log.Info("auth decision",
			logger.Outcome(string(StatusGranted)),
			logger.Role(principal.Role),
		)
		return Decision{Status: StatusGranted, Principal: principal}
	}

	// Nonce ya visto: o es el browser volviendo del challenge (flag presente),
	// o es un replay. El flag autoriza exactamente una vuelta.
	ok, err := e.StepUp.ConsumeFlag(ctx, principal.ID)
	if err != nil {
		log.Error("step-up flag unavailable", logger.Err(err))
		return Decision{Status: StatusRejectInvalid, Principal: principal, Reason: ErrDirectoryUnavailable}
	}
	if ok {
		log.Info("auth decision",
			logger.Outcome(string(StatusGranted)),
			logger.Role(principal.Role),
			zap.Bool("stepup_return", true),
		)
		return Decision{Status: StatusGranted, Principal: principal}
	}

	// Reuso sin razón autorizada: señal de ataque. Severidad elevada.
	log.Error("auth decision",
		logger.Outcome(string(StatusRejectReplay)),
		logger.Role(principal.Role),
		logger.Err(ErrReplayDetected),
	)
	return Decision{Status: StatusRejectReplay, Principal: principal, Reason: ErrReplayDetected}
}
