package auditactions

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/procura-io/procura/internal/platform/httpx"
)

// Handler exposes action lookups to the notification router.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, registry *Registry) *Handler {
	return &Handler{logger: logger, registry: registry}
}

// MountRoutes registers audit action routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{name}", h.lookup)
}

type definitionResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid action name")
		return
	}

	def, err := h.registry.Lookup(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown audit action")
			return
		}
		h.logger.Error("audit action lookup", slog.String("name", name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, definitionResponse{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Kind:        string(def.Kind),
	})
}
