// Package observability wires Prometheus metrics for the HTTP surface and
// the resolution core.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	permissionChecks *prometheus.CounterVec
	uploadChecks     *prometheus.CounterVec
	resolverCache    *prometheus.CounterVec
	reloads          *prometheus.CounterVec
}

// NewMetrics initializes the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procura_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "procura_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	permissionChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procura_permission_checks_total",
		Help: "Permission checks by outcome.",
	}, []string{"outcome"})
	uploadChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procura_upload_checks_total",
		Help: "Upload validations by outcome.",
	}, []string{"outcome"})
	resolverCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procura_resolver_cache_total",
		Help: "Resolver cache lookups by result.",
	}, []string{"result"})
	reloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "procura_catalog_reloads_total",
		Help: "Catalog reload attempts by result.",
	}, []string{"result"})
	registry.MustRegister(requests, duration, permissionChecks, uploadChecks, resolverCache, reloads)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		permissionChecks: permissionChecks,
		uploadChecks:     uploadChecks,
		resolverCache:    resolverCache,
		reloads:          reloads,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// PermissionCheck records a permission check outcome.
func (m *Metrics) PermissionCheck(allowed bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.permissionChecks.WithLabelValues(outcome).Inc()
}

// UploadCheck records an upload validation outcome.
func (m *Metrics) UploadCheck(allowed bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if allowed {
		outcome = "allowed"
	}
	m.uploadChecks.WithLabelValues(outcome).Inc()
}

// ResolverCacheHit records a resolver cache hit.
func (m *Metrics) ResolverCacheHit() {
	if m == nil {
		return
	}
	m.resolverCache.WithLabelValues("hit").Inc()
}

// ResolverCacheMiss records a resolver cache miss.
func (m *Metrics) ResolverCacheMiss() {
	if m == nil {
		return
	}
	m.resolverCache.WithLabelValues("miss").Inc()
}

// ReloadSucceeded records a successful catalog reload.
func (m *Metrics) ReloadSucceeded() {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues("ok").Inc()
}

// ReloadFailed records a failed catalog reload.
func (m *Metrics) ReloadFailed() {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues("error").Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
