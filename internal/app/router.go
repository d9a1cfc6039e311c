package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/procura-io/procura/internal/auditactions"
	"github.com/procura-io/procura/internal/authz"
	"github.com/procura-io/procura/internal/catalog"
	"github.com/procura-io/procura/internal/fileval"
	"github.com/procura-io/procura/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthzHandler   *authz.Handler
	UploadHandler  *fileval.Handler
	ActionsHandler *auditactions.Handler
	CatalogHandler *catalog.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with Procura defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Config != nil {
		r.Use(chimw.Timeout(params.Config.AppRequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/authz", func(r chi.Router) {
			params.AuthzHandler.MountRoutes(r)
		})
		r.Route("/uploads", func(r chi.Router) {
			params.UploadHandler.MountRoutes(r)
		})
		r.Route("/audit-actions", func(r chi.Router) {
			params.ActionsHandler.MountRoutes(r)
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(httprate.LimitByIP(10, time.Minute))
			r.Route("/catalog", func(r chi.Router) {
				params.CatalogHandler.MountRoutes(r)
			})
		})
	})

	return r
}
