package metrics

import (
	"net/http"
	"strconv"
	"time"

	"productivity-api/internal/domain/activity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry agrupa los collectors del servicio. Implementa activity.Metrics.
type Registry struct {
	reg *prometheus.Registry

	appended          *prometheus.CounterVec
	referenceMissing  *prometheus.CounterVec
	bestEffortFailed  *prometheus.CounterVec
	bestEffortDropped *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func New(namespace string) *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		appended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activities_appended_total",
			Help:      "Actividades escritas en el ledger, por tipo.",
		}, []string{"type"}),
		referenceMissing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_reference_missing_total",
			Help:      "Escrituras rechazadas por referencia inexistente, por tipo de entidad.",
		}, []string{"entity"}),
		bestEffortFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_best_effort_failed_total",
			Help:      "Escrituras best-effort que fallaron.",
		}, []string{"type"}),
		bestEffortDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_best_effort_dropped_total",
			Help:      "Escrituras best-effort descartadas (cola llena o writer cerrado).",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests HTTP por método, ruta y status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latencia de requests HTTP.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.appended,
		r.referenceMissing,
		r.bestEffortFailed,
		r.bestEffortDropped,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

func (r *Registry) Appended(t activity.Type) {
	r.appended.WithLabelValues(string(t)).Inc()
}

func (r *Registry) ReferenceMissing(kind activity.EntityKind) {
	r.referenceMissing.WithLabelValues(string(kind)).Inc()
}

func (r *Registry) BestEffortFailed(t activity.Type) {
	r.bestEffortFailed.WithLabelValues(string(t)).Inc()
}

func (r *Registry) BestEffortDropped(t activity.Type) {
	r.bestEffortDropped.WithLabelValues(string(t)).Inc()
}

// ObserveHTTP lo llama el middleware de request log. route es el patrón de chi, no el path.
func (r *Registry) ObserveHTTP(method, route string, status int, d time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer expone el registry para tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
