package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/procura-io/procura/internal/platform/httpx"
)

// ReloadEnqueuer hands reload requests to the background worker.
type ReloadEnqueuer interface {
	EnqueueCatalogReload(ctx context.Context, reason string) error
}

// Handler exposes the administrative reload endpoint. The actual reload runs
// on the worker so a slow source never ties up a request slot; the response
// only acknowledges that the reload was scheduled.
type Handler struct {
	logger   *slog.Logger
	enqueuer ReloadEnqueuer
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, enqueuer ReloadEnqueuer) *Handler {
	return &Handler{logger: logger, enqueuer: enqueuer}
}

// MountRoutes registers administrative catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/reload", h.reload)
}

type reloadRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	var req reloadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		req.Reason = ""
	}
	if req.Reason == "" {
		req.Reason = "admin request"
	}

	if err := h.enqueuer.EnqueueCatalogReload(r.Context(), req.Reason); err != nil {
		h.logger.Error("enqueue catalog reload", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}
