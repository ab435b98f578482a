package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/passbridge/internal/http"
	"github.com/dropDatabas3/passbridge/internal/observability/logger"
	"github.com/dropDatabas3/passbridge/internal/stepup"
)

// StepUpHandler completa el challenge: recibe {uid, code} y, si verifica,
// devuelve la URL de entrada original (mismo nonce) para que el browser la
// repita. Esa repetición aterriza en el branch de replay del engine, que la
// autoriza consumiendo el flag.
//
// Deliberadamente sin rate limit ni contador de intentos: el código vale
// hasta su propio TTL (300s) ante mismatches.
type StepUpHandler struct {
	StepUp *stepup.Manager
}

func (h *StepUpHandler) Register(r chi.Router) {
	r.Post("/v1/stepup/verify", h.verify)
}

type verifyIn struct {
	UID  string `json:"uid"`
	Code string `json:"code"`
}

func (h *StepUpHandler) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in verifyIn
	if !httpx.ReadStrictJSON(w, r, &in) {
		return
	}
	if in.UID == "" || in.Code == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_fields", "uid y code son obligatorios", 2100)
		return
	}

	returnTo, err := h.StepUp.Verify(ctx, in.UID, in.Code)
	switch {
	case errors.Is(err, stepup.ErrChallengeExpired):
		httpx.ObserveStepUpVerify("expired")
		httpx.WriteError(w, http.StatusGone, "challenge_expired", "el código expiró, iniciá el ingreso de nuevo", 3101)
		return
	case errors.Is(err, stepup.ErrCodeMismatch):
		httpx.ObserveStepUpVerify("mismatch")
		httpx.WriteError(w, http.StatusUnauthorized, "code_mismatch", "código incorrecto", 3102)
		return
	case err != nil:
		httpx.ObserveStepUpVerify("error")
		logger.From(ctx).Error("step-up verify failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "no se pudo verificar el código", 3104)
		return
	}

	httpx.ObserveStepUpVerify("ok")
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"redirect": returnTo})
}
