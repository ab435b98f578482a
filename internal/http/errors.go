// Package http contiene la superficie HTTP compartida por el gateway y los
// servicios downstream: helpers de respuesta, métricas y arranque del server.
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Códigos numéricos de error:
//
//	1xxx transporte / JSON
//	2xxx flujo de autenticación (login, sso entry)
//	3xxx step-up
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCode        int    `json:"error_code,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, desc string, errCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		ErrorCode:        errCode,
		RequestID:        rid,
	})
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadStrictJSON decodifica el body fail-closed: Content-Type obligatorio,
// body acotado a 64KB, campos desconocidos rechazados, sin datos extra.
func ReadStrictJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.Contains(ct, "application/json") {
		WriteError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "se requiere Content-Type: application/json", 1101)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		msg := "json inválido"
		if err == io.EOF {
			msg = "body vacío"
		}
		WriteError(w, http.StatusBadRequest, "invalid_json", msg, 1102)
		return false
	}

	// No debe haber datos extra
	if dec.More() {
		WriteError(w, http.StatusBadRequest, "invalid_json", "sobran datos en el body", 1103)
		return false
	}

	return true
}
