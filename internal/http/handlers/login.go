// Package handlers expone los endpoints del gateway y de los servicios
// downstream. El gateway autentica por credencial y acuña handoffs; cada
// servicio downstream valida handoffs entrantes y corre el step-up.
package handlers

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/passbridge/internal/directory"
	"github.com/dropDatabas3/passbridge/internal/handoff"
	httpx "github.com/dropDatabas3/passbridge/internal/http"
	"github.com/dropDatabas3/passbridge/internal/observability/logger"
	"github.com/dropDatabas3/passbridge/internal/rate"
	"github.com/dropDatabas3/passbridge/internal/session"
)

// LoginHandler implementa el login primario del gateway: credencial contra
// el directorio, cookie de sesión local, y un handoff URL fresco hacia el
// target pedido.
type LoginHandler struct {
	Auth        directory.Authenticator
	Sessions    *session.Manager
	Builder     *handoff.Builder
	Limiter     rate.Limiter // nil => sin límite
	FirstHopTTL time.Duration
}

func (h *LoginHandler) Register(r chi.Router) {
	r.Post("/v1/auth/login", h.login)
}

type loginIn struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Target es la base URL del servicio al que el browser debe saltar
	// después del login.
	Target string `json:"target"`
}

func (h *LoginHandler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.rateLimited(w, r) {
		return
	}

	var in loginIn
	if !httpx.ReadStrictJSON(w, r, &in) {
		return
	}
	if in.Username == "" || in.Password == "" || in.Target == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing_fields", "username, password y target son obligatorios", 2100)
		return
	}

	p, err := h.Auth.VerifyCredentials(ctx, in.Username, in.Password)
	if err != nil {
		if errors.Is(err, directory.ErrBadCredentials) {
			logger.From(ctx).Warn("login rejected", logger.PrincipalID(in.Username))
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "usuario o password incorrectos", 2101)
			return
		}
		logger.From(ctx).Error("login backend error", logger.Err(err))
		httpx.WriteError(w, http.StatusServiceUnavailable, "backend_unavailable", "intentá de nuevo más tarde", 2106)
		return
	}

	if err := h.Sessions.Issue(w, p.ID, p.Role); err != nil {
		logger.From(ctx).Error("session issue failed", logger.Err(err))
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "no se pudo crear la sesión", 2107)
		return
	}

	redirect, err := h.Builder.Build(p.ID, in.Target, h.FirstHopTTL)
	if err != nil {
		logger.From(ctx).Error("handoff build failed", logger.Target(in.Target), logger.Err(err))
		httpx.WriteError(w, http.StatusBadRequest, "invalid_target", "target inválido", 2102)
		return
	}
	httpx.ObserveHandoffMinted()

	logger.From(ctx).Info("login ok",
		logger.PrincipalID(p.ID),
		logger.Role(p.Role),
		logger.Target(in.Target),
	)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"redirect": redirect})
}

// rateLimited corta el request con 429 si el límite de login se agotó.
func (h *LoginHandler) rateLimited(w http.ResponseWriter, r *http.Request) bool {
	if h.Limiter == nil {
		return false
	}
	res, err := h.Limiter.Allow(r.Context(), "login:"+clientIP(r))
	if err != nil {
		// Limiter caído: dejamos pasar antes que bloquear logins legítimos
		logger.From(r.Context()).Warn("rate limiter unavailable", logger.Err(err))
		return false
	}
	if res.Allowed {
		return false
	}
	if res.RetryAfter > 0 {
		secs := int(math.Ceil(res.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests", 1104)
	return true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
