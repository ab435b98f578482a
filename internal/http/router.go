package http

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/passbridge/internal/http/middlewares"
)

// Registerer es cualquier handler que sepa colgarse del router.
type Registerer interface {
	Register(r chi.Router)
}

// NewRouter arma el router con la cadena estándar de middlewares
// (request-id -> logging -> metrics) y registra los handlers dados.
// El gateway y el servicio downstream usan el mismo esqueleto; difieren
// solo en qué handlers registran.
func NewRouter(regs ...Registerer) stdhttp.Handler {
	r := chi.NewRouter()

	r.Use(middlewares.WithRequestID())
	r.Use(middlewares.WithLogging())
	r.Use(WithMetrics(chiRoutePattern))

	for _, reg := range regs {
		reg.Register(r)
	}
	return r
}

// chiRoutePattern devuelve el patrón de ruta ya resuelto (para que las
// métricas no exploten en cardinalidad con paths arbitrarios).
func chiRoutePattern(r *stdhttp.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
