package fileval

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/procura-io/procura/internal/platform/httpx"
)

// CheckMetrics records upload validation outcomes; nil disables reporting.
type CheckMetrics interface {
	UploadCheck(allowed bool)
}

// Handler exposes the upload pre-check consumed by the upload pipeline
// before a file is forwarded to object storage.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	metrics  CheckMetrics
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, metrics CheckMetrics) *Handler {
	return &Handler{logger: logger, resolver: resolver, metrics: metrics, validate: validator.New()}
}

// MountRoutes registers upload validation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
}

type checkRequest struct {
	CompanyID         int64  `json:"company_id" validate:"required,gt=0"`
	PermissionGroupID int64  `json:"permission_group_id" validate:"required,gt=0"`
	Filename          string `json:"filename" validate:"required"`
	SizeBytes         int64  `json:"size_bytes" validate:"gte=0"`
}

type checkResponse struct {
	Allowed   bool   `json:"allowed"`
	Reason    string `json:"reason,omitempty"`
	MaxSizeMB int    `json:"max_size_mb,omitempty"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ext, err := ExtensionFromFilename(req.Filename)
	if err != nil {
		// A file without a usable extension is rejected the same way as one
		// nobody permitted.
		if h.metrics != nil {
			h.metrics.UploadCheck(false)
		}
		httpx.JSON(w, http.StatusOK, checkResponse{Allowed: false, Reason: string(ReasonExtensionNotAllowed)})
		return
	}

	decision, err := h.resolver.Validate(req.CompanyID, req.PermissionGroupID, ext, req.SizeBytes)
	if err != nil {
		if errors.Is(err, ErrUnknownGroup) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown permission group")
			return
		}
		h.logger.Error("upload check", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.UploadCheck(decision.Allowed)
	}
	resp := checkResponse{Allowed: decision.Allowed, MaxSizeMB: decision.MaxSizeMB}
	if !decision.Allowed {
		resp.Reason = string(decision.Reason)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
