package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	authDecisionsTotal *prometheus.CounterVec
	stepupIssuedTotal  *prometheus.CounterVec
	stepupVerifyTotal  *prometheus.CounterVec
	handoffMintedTotal prometheus.Counter
)

// RegisterMetrics inicializa las métricas y devuelve el handler para /metrics.
func RegisterMetrics(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		authDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_decisions_total",
			Help: "Decisiones del engine por resultado",
		}, []string{"outcome"}) // granted|require_step_up|reject_replay|reject_invalid|reject_expired

		stepupIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepup_codes_issued_total",
			Help: "Códigos de step-up emitidos por resultado de entrega",
		}, []string{"delivery"}) // ok|failed

		stepupVerifyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stepup_verify_total",
			Help: "Verificaciones de código por resultado",
		}, []string{"result"}) // ok|mismatch|expired|error

		handoffMintedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "handoff_urls_minted_total",
			Help: "Handoff URLs acuñadas",
		})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration,
			authDecisionsTotal, stepupIssuedTotal, stepupVerifyTotal,
			handoffMintedTotal,
		} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})

	if metricsErr != nil {
		return nil, metricsErr
	}
	return promhttp.Handler(), nil
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return err
		}
	}
	return nil
}

// ObserveDecision registra el resultado de una decisión del engine.
func ObserveDecision(outcome string) {
	if authDecisionsTotal != nil {
		authDecisionsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveStepUpIssue registra una emisión de código.
func ObserveStepUpIssue(delivery string) {
	if stepupIssuedTotal != nil {
		stepupIssuedTotal.WithLabelValues(delivery).Inc()
	}
}

// ObserveStepUpVerify registra una verificación de código.
func ObserveStepUpVerify(result string) {
	if stepupVerifyTotal != nil {
		stepupVerifyTotal.WithLabelValues(result).Inc()
	}
}

// ObserveHandoffMinted registra una URL de handoff acuñada.
func ObserveHandoffMinted() {
	if handoffMintedTotal != nil {
		handoffMintedTotal.Inc()
	}
}

// WithMetrics instrumenta requests (counter + histograma).
func WithMetrics(routePattern func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httpRequestsTotal == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := &metricsRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if routePattern != nil {
				if p := routePattern(r); p != "" {
					path = p
				}
			}
			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

type metricsRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *metricsRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *metricsRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	return s.ResponseWriter.Write(b)
}
