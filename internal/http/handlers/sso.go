package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/passbridge/internal/authflow"
	httpx "github.com/dropDatabas3/passbridge/internal/http"
	"github.com/dropDatabas3/passbridge/internal/observability/logger"
	"github.com/dropDatabas3/passbridge/internal/session"
	"github.com/dropDatabas3/passbridge/internal/stepup"
)

// SSOHandler es el entry endpoint de un servicio downstream: recibe el
// handoff {token, sig, uid, nonce} y deja que el decision engine decida.
type SSOHandler struct {
	Engine   *authflow.Engine
	StepUp   *stepup.Manager
	Sessions *session.Manager

	// BaseURL pública de este servicio; usada para armar el return-to que
	// el browser repite (mismo nonce) después del step-up.
	BaseURL string

	// LandingPath es a dónde va el browser con la sesión ya emitida.
	LandingPath string

	// DebugEchoCode expone el código en un header (solo dev/DX).
	DebugEchoCode bool
}

func (h *SSOHandler) Register(r chi.Router) {
	r.Get("/v1/sso", h.entry)
}

func (h *SSOHandler) entry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	req := authflow.Request{
		TokenPayload: q.Get("token"),
		TokenSig:     q.Get("sig"),
		PrincipalID:  q.Get("uid"),
		Nonce:        q.Get("nonce"),
	}
	if req.TokenPayload == "" || req.TokenSig == "" || req.PrincipalID == "" || req.Nonce == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "faltan parámetros del handoff", 2100)
		return
	}

	dec := h.Engine.Decide(ctx, req)
	httpx.ObserveDecision(string(dec.Status))

	switch dec.Status {
	case authflow.StatusGranted:
		if err := h.Sessions.Issue(w, dec.Principal.ID, dec.Principal.Role); err != nil {
			logger.From(ctx).Error("session issue failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "no se pudo crear la sesión", 2107)
			return
		}
		landing := h.LandingPath
		if landing == "" {
			landing = "/"
		}
		http.Redirect(w, r, landing, http.StatusSeeOther)

	case authflow.StatusRequireStepUp:
		// El browser va a volver a ESTA misma URL (mismo token, mismo nonce)
		// cuando el código verifique; la guardamos junto al challenge.
		returnTo := strings.TrimRight(h.BaseURL, "/") + r.URL.RequestURI()
		ch, err := h.StepUp.Issue(ctx, dec.Principal, returnTo)
		if err != nil {
			if errors.Is(err, stepup.ErrDelivery) {
				// El código quedó guardado pero el usuario nunca lo va a
				// recibir: error visible, sin revelar el código.
				httpx.ObserveStepUpIssue("failed")
				logger.From(ctx).Error("step-up delivery failed",
					logger.PrincipalID(dec.Principal.ID), logger.Err(err))
				httpx.WriteError(w, http.StatusBadGateway, "delivery_failed", "no se pudo enviar el código de verificación", 3103)
				return
			}
			logger.From(ctx).Error("step-up issue failed", logger.Err(err))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "no se pudo iniciar la verificación", 3104)
			return
		}
		httpx.ObserveStepUpIssue("ok")
		if h.DebugEchoCode {
			// Solo dev: permite probar el flujo completo sin SMTP
			w.Header().Set("X-Debug-Stepup-Code", ch.Code)
		}
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"status":       "step_up_required",
			"challenge_id": ch.ID,
			"uid":          dec.Principal.ID,
			"verify_url":   strings.TrimRight(h.BaseURL, "/") + "/v1/stepup/verify",
		})

	default:
		h.writeReject(w, dec)
	}
}

// writeReject mapea los rechazos a respuestas sin comportamiento oráculo:
// firma, payload, expiración, principal desconocido y replay comparten el
// mismo mensaje genérico. Solo el fallo transitorio de backend se distingue,
// para que el cliente sepa que puede reintentar.
func (h *SSOHandler) writeReject(w http.ResponseWriter, dec authflow.Decision) {
	if errors.Is(dec.Reason, authflow.ErrDirectoryUnavailable) {
		httpx.WriteError(w, http.StatusServiceUnavailable, "backend_unavailable", "intentá de nuevo más tarde", 2106)
		return
	}
	httpx.WriteError(w, http.StatusUnauthorized, "invalid_session", "sesión inválida o expirada", 2104)
}
