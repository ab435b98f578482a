package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/passbridge/internal/handoff"
	httpx "github.com/dropDatabas3/passbridge/internal/http"
	"github.com/dropDatabas3/passbridge/internal/observability/logger"
	"github.com/dropDatabas3/passbridge/internal/session"
)

// HandoffHandler deja que una sesión ya logueada salte a otro servicio sin
// repetir credenciales: acuña un token + nonce frescos y redirige.
type HandoffHandler struct {
	Sessions      *session.Manager
	Builder       *handoff.Builder
	FirstHopTTL   time.Duration
	SessionHopTTL time.Duration
}

func (h *HandoffHandler) Register(r chi.Router) {
	r.Get("/v1/handoff", h.mint)
}

// GET /v1/handoff?target=<base-url>&life=first|session
func (h *HandoffHandler) mint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	uid, _, err := h.Sessions.Current(r)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "no_session", "sesión inválida o expirada", 2103)
		return
	}

	target := r.URL.Query().Get("target")
	if target == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_target", "falta el parámetro target", 2100)
		return
	}

	// "session": el hop queda válido durante la jornada (~4h);
	// default: hop corto que se consume en segundos (~5m).
	ttl := h.FirstHopTTL
	if r.URL.Query().Get("life") == "session" {
		ttl = h.SessionHopTTL
	}

	redirect, err := h.Builder.Build(uid, target, ttl)
	if err != nil {
		logger.From(ctx).Error("handoff build failed", logger.Target(target), logger.Err(err))
		httpx.WriteError(w, http.StatusBadRequest, "invalid_target", "target inválido", 2102)
		return
	}
	httpx.ObserveHandoffMinted()

	logger.From(ctx).Info("handoff minted",
		logger.PrincipalID(uid),
		logger.Target(target),
	)
	http.Redirect(w, r, redirect, http.StatusFound)
}
